package awsstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/EliuX/cloud-tools/pkg/pager"
	"github.com/EliuX/cloud-tools/pkg/plan"
	"github.com/EliuX/cloud-tools/pkg/resource"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

const allUsersGroupURI = "http://acs.amazonaws.com/groups/global/AllUsers"

// ContainerEnumerator lists an account's containers with their tags and
// public-access level.
type ContainerEnumerator struct {
	client *s3.Client
}

func NewContainerEnumerator(c *Clients) *ContainerEnumerator {
	return &ContainerEnumerator{client: c.S3}
}

func (e *ContainerEnumerator) List(ctx context.Context) (resource.Snapshot, error) {
	out, err := e.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	snapshot := make(resource.Snapshot, len(out.Buckets))
	for _, bucket := range out.Buckets {
		name := aws.ToString(bucket.Name)

		record := resource.ContainerRecord{
			Name:         name,
			PublicAccess: resource.AccessPrivate,
		}

		tagging, err := e.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: bucket.Name})
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to read tags of container %s: %w", name, err)
		}
		if tagging != nil && len(tagging.TagSet) > 0 {
			record.Metadata = make(map[string]string, len(tagging.TagSet))
			for _, tag := range tagging.TagSet {
				record.Metadata[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
			}
		}

		acl, err := e.client.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: bucket.Name})
		if err != nil {
			return nil, fmt.Errorf("failed to read ACL of container %s: %w", name, err)
		}
		for _, grant := range acl.Grants {
			if grant.Grantee != nil && aws.ToString(grant.Grantee.URI) == allUsersGroupURI {
				record.PublicAccess = resource.AccessPublicRead
				break
			}
		}

		snapshot[record.Key()] = record
	}
	return snapshot, nil
}

// ContainerApplier creates, updates and deletes containers on the
// destination account.
type ContainerApplier struct {
	client *s3.Client
	region string
}

func NewContainerApplier(c *Clients) *ContainerApplier {
	return &ContainerApplier{client: c.S3, region: c.Region}
}

func (a *ContainerApplier) Create(ctx context.Context, record resource.Record) transfer.Outcome {
	container, ok := record.(resource.ContainerRecord)
	if !ok {
		return transfer.Terminal(fmt.Sprintf("expected container record, got %T", record))
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(container.Name)}
	if container.PublicAccess == resource.AccessPublicRead {
		input.ACL = types.BucketCannedACLPublicRead
	}
	// us-east-1 rejects an explicit location constraint.
	if a.region != "" && a.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.region),
		}
	}

	if _, err := a.client.CreateBucket(ctx, input); err != nil {
		return classify(err)
	}
	return a.putTags(ctx, container)
}

func (a *ContainerApplier) Update(ctx context.Context, update plan.Update) transfer.Outcome {
	container, ok := update.Source.(resource.ContainerRecord)
	if !ok {
		return transfer.Terminal(fmt.Sprintf("expected container record, got %T", update.Source))
	}

	for _, diff := range update.Differences {
		if diff.Property != "public_access" {
			continue
		}
		acl := types.BucketCannedACLPrivate
		if container.PublicAccess == resource.AccessPublicRead {
			acl = types.BucketCannedACLPublicRead
		}
		if _, err := a.client.PutBucketAcl(ctx, &s3.PutBucketAclInput{
			Bucket: aws.String(container.Name),
			ACL:    acl,
		}); err != nil {
			return classify(err)
		}
		break
	}

	return a.putTags(ctx, container)
}

func (a *ContainerApplier) putTags(ctx context.Context, container resource.ContainerRecord) transfer.Outcome {
	if len(container.Metadata) == 0 {
		return transfer.OK()
	}
	tagSet := make([]types.Tag, 0, len(container.Metadata))
	for k, v := range container.Metadata {
		tagSet = append(tagSet, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	_, err := a.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(container.Name),
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	return classify(err)
}

func (a *ContainerApplier) Delete(ctx context.Context, key resource.Key) transfer.Outcome {
	_, err := a.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(string(key))})
	return classify(err)
}

func (a *ContainerApplier) Exists(ctx context.Context, key resource.Key) (bool, error) {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(string(key))})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// BlobPager reads a container's blob listing in bounded pages. The
// continuation token from the store is passed through verbatim as the
// engine's opaque cursor.
type BlobPager struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewBlobPager(c *Clients, bucket, prefix string) *BlobPager {
	return &BlobPager{client: c.S3, bucket: bucket, prefix: prefix}
}

func (p *BlobPager) ReadPage(ctx context.Context, cursor pager.Cursor, pageSize int) ([]resource.Record, pager.Cursor, bool, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		MaxKeys: aws.Int32(int32(pageSize)),
	}
	if p.prefix != "" {
		input.Prefix = aws.String(p.prefix)
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(string(cursor))
	}

	out, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to list blobs in %s: %w", p.bucket, err)
	}

	records := make([]resource.Record, 0, len(out.Contents))
	for _, obj := range out.Contents {
		records = append(records, resource.BlobRecord{
			Container: p.bucket,
			Name:      aws.ToString(obj.Key),
			Size:      aws.ToInt64(obj.Size),
			ETag:      aws.ToString(obj.ETag),
		})
	}

	if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
		return records, pager.Cursor(aws.ToString(out.NextContinuationToken)), false, nil
	}
	return records, "", true, nil
}

// BlobApplier copies blobs into the destination container using
// server-side copy.
type BlobApplier struct {
	client       *s3.Client
	sourceBucket string
	destBucket   string
}

func NewBlobApplier(c *Clients, sourceBucket, destBucket string) *BlobApplier {
	return &BlobApplier{client: c.S3, sourceBucket: sourceBucket, destBucket: destBucket}
}

func (a *BlobApplier) Create(ctx context.Context, record resource.Record) transfer.Outcome {
	blob, ok := record.(resource.BlobRecord)
	if !ok {
		return transfer.Terminal(fmt.Sprintf("expected blob record, got %T", record))
	}

	copySource := fmt.Sprintf("%s/%s", a.sourceBucket, url.PathEscape(blob.Name))
	_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(a.destBucket),
		Key:        aws.String(blob.Name),
		CopySource: aws.String(copySource),
	})
	return classify(err)
}

func (a *BlobApplier) Update(ctx context.Context, update plan.Update) transfer.Outcome {
	return a.Create(ctx, update.Source)
}

func (a *BlobApplier) Delete(ctx context.Context, key resource.Key) transfer.Outcome {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.destBucket),
		Key:    aws.String(string(key)),
	})
	return classify(err)
}

func (a *BlobApplier) Exists(ctx context.Context, key resource.Key) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.destBucket),
		Key:    aws.String(string(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
