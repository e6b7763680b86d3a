package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/tab_grouper/internal/controller"
	"github.com/dgnsrekt/tab_grouper/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	Cluster(ctx context.Context, windowID int) (types.RunReport, error)
	ListTabs(ctx context.Context, windowID int) ([]types.Tab, error)
	Parse(ctx context.Context, text string) ([]types.ClusterSpec, error)
	Health(ctx context.Context) (controller.HealthStatus, error)
}

type windowInput struct {
	WindowID int `query:"window_id" default:"0" doc:"Browser window id. 0 selects the last focused window."`
}

type clusterOutput struct {
	RunID string `header:"X-Run-ID"`
	Body  struct {
		Success bool            `json:"success"`
		Report  types.RunReport `json:"report"`
	}
}

type tabsOutput struct {
	Body struct {
		WindowID int         `json:"window_id"`
		Tabs     []types.Tab `json:"tabs"`
	}
}

type parseInput struct {
	Body struct {
		Text string `json:"text" doc:"Oracle reply text to parse"`
	}
}

type parseOutput struct {
	Body struct {
		Clusters []types.ClusterSpec `json:"clusters"`
	}
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(newRequestLogger(slog.Default()))
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Tab Grouper Controller API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerHealthHandlers(api, svc)
	registerTabHandlers(api, svc)
	return router
}

func registerHealthHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type deepHealthOutput struct {
		Body controller.HealthStatus
	}
	huma.Register(api, huma.Operation{OperationID: "deep-health", Method: http.MethodGet, Path: "/api/v1/health/deep", Summary: "Check the bridge extension answers", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*deepHealthOutput, error) {
			status, err := svc.Health(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &deepHealthOutput{Body: status}, nil
		})
}

func registerTabHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "cluster-tabs", Method: http.MethodPost, Path: "/api/v1/cluster", Summary: "Cluster and regroup the window's tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *windowInput) (*clusterOutput, error) {
			report, err := svc.Cluster(ctx, input.WindowID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &clusterOutput{RunID: report.RunID}
			out.Body.Success = true
			out.Body.Report = report
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List the window's tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *windowInput) (*tabsOutput, error) {
			tabs, err := svc.ListTabs(ctx, input.WindowID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tabsOutput{}
			out.Body.WindowID = input.WindowID
			out.Body.Tabs = tabs
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "parse-reply", Method: http.MethodPost, Path: "/api/v1/parse", Summary: "Parse oracle text into clusters without touching the browser", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *parseInput) (*parseOutput, error) {
			clusters, err := svc.Parse(ctx, input.Body.Text)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &parseOutput{}
			out.Body.Clusters = clusters
			return out, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *types.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case types.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case types.CodeRunInProgress:
			return huma.Error409Conflict(coded.Message)
		case types.CodeOracleUnavailable, types.CodeOracleBadResponse:
			return huma.Error502BadGateway(coded.Error())
		case types.CodeOracleTimeout, types.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Error())
		case types.CodeCDPUnavailable, types.CodeBridgeNotFound:
			return huma.Error503ServiceUnavailable(coded.Error())
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
