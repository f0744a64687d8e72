package extapi

import "os"

// EnvAWSLambdaRuntimeAPI returns the host:port of the Extensions API,
// read from the reserved AWS_LAMBDA_RUNTIME_API environment variable.
// https://docs.aws.amazon.com/lambda/latest/dg/runtimes-extensions-api.html#runtimes-extensions-registration-api-e
func EnvAWSLambdaRuntimeAPI() string {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API")
}
