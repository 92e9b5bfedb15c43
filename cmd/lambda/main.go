package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"

	"github.com/vbonduro/peoplegallery/internal/app"
	"github.com/vbonduro/peoplegallery/internal/config"
	"github.com/vbonduro/peoplegallery/internal/logging"
)

var chiLambda *chiadapter.ChiLambdaV2

// init runs once per cold start; warm invocations reuse the adapter.
func init() {
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Lambda ships stderr to CloudWatch, so no log file.
	logger, _, err := logging.New(cfg.LogLevel, cfg.LogFormat, "")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	chiLambda = chiadapter.NewV2(a.Server.Router())
	logger.Info("lambda cold start complete", "duration_ms", time.Since(start).Milliseconds())
}

func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
