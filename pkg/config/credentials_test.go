package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHalfSuppliedKeys(t *testing.T) {
	err := (&Credentials{AccessKeyID: "AKIA"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without secret access key")

	err = (&Credentials{SecretAccessKey: "secret"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without access key ID")
}

func TestValidateAccepts(t *testing.T) {
	assert.NoError(t, (&Credentials{}).Validate(), "empty credentials fall through to the SDK default chain")
	assert.NoError(t, (&Credentials{AccessKeyID: "AKIA", SecretAccessKey: "secret"}).Validate())
}

func TestValidateNil(t *testing.T) {
	var c *Credentials
	assert.Error(t, c.Validate())
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "token")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("STORE_ENDPOINT_URL", "http://localhost:9000")

	creds := FromEnvironment()
	require.NotNil(t, creds)
	assert.Equal(t, "AKIA", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
	assert.Equal(t, "token", creds.SessionToken)
	assert.Equal(t, "eu-west-1", creds.Region)
	assert.Equal(t, "http://localhost:9000", creds.EndpointURL)
}

func TestFromEnvironmentMissingKeys(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	assert.Nil(t, FromEnvironment())
}
