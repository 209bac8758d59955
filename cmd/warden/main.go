// Warden starts and stops tagged instances on the hour and keeps versioning
// enabled on managed buckets. It runs as a Lambda function when
// AWS_LAMBDA_FUNCTION_NAME is set and as a CLI otherwise.
package main

import (
	"os"
)

func main() {
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		runLambda(fn)
		return
	}
	Execute()
}
