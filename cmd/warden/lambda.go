package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
)

// runLambda hands the handler to the Lambda runtime and never returns.
func runLambda(functionName string) {
	cfg, err := setup()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	a, err := newApp(context.Background(), cfg, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}

	log.Info().Str("function", functionName).Msg("invoked as lambda")
	lambda.Start(a.lambdaHandler)
}

// lambdaHandler runs one invocation and flushes telemetry before the
// execution environment is frozen.
func (a *app) lambdaHandler(ctx context.Context, payload json.RawMessage) (events.APIGatewayProxyResponse, error) {
	resp, err := a.handler.HandleLambda(ctx, payload)
	if flushErr := a.telemetry.ForceFlush(ctx); flushErr != nil {
		log.Warn().Err(flushErr).Msg("failed to flush telemetry")
	}
	return resp, err
}
