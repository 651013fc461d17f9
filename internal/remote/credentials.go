package remote

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

// VerifyCredentials implements the orchestrator's credential ambiguity check
// (spec §4.8): AWS credentials are read from the environment first, falling
// back to the standard credentials file; if neither environment variable is
// set and the credentials file holds more than one profile, refuse to guess
// which one the caller meant.
func VerifyCredentials() error {
	accessKeyID := os.Getenv("AWS_ACCESS_KEY_ID")
	secretAccessKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKeyID != "" && secretAccessKey != "" {
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return apperr.ConfigError("verify_credentials", "could not resolve home directory to locate AWS credentials file").Wrap(err)
	}
	credentialsPath := filepath.Join(home, ".aws", "credentials")

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return apperr.ConfigError("verify_credentials",
			"AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY are not set and no AWS credentials file was found; "+
				"set the environment variables or configure the AWS CLI").Wrap(err)
	}
	content := string(data)

	if strings.Count(content, "aws_access_key_id") > 1 || strings.Count(content, "aws_secret_access_key") > 1 {
		return apperr.ConfigError("verify_credentials",
			"AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set and multiple profiles were found in "+
				"~/.aws/credentials; set the environment variables to disambiguate which profile to use")
	}

	if !strings.Contains(content, "aws_access_key_id") || !strings.Contains(content, "aws_secret_access_key") {
		return apperr.ConfigError("verify_credentials",
			"no usable AWS credentials found in the environment or ~/.aws/credentials")
	}
	return nil
}
