package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdAsk() *cli.Command {
	var bucket string
	var general bool
	var provider string
	var appCfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Bucket to answer from (all buckets when empty)",
			Destination: &bucket,
		},
		&cli.BoolFlag{
			Name:        "general",
			Aliases:     []string{"g"},
			Usage:       "Answer from general knowledge instead of notes",
			Destination: &general,
		},
		&cli.StringFlag{
			Name:        "provider",
			Aliases:     []string{"p"},
			Usage:       "Provider of general answers (local, gemini or openai)",
			Value:       "local",
			Destination: &provider,
		},
	}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:      "ask",
		Aliases:   []string{"a"},
		Usage:     "Ask a question from the command line",
		ArgsUsage: "QUESTION",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if message == "" {
				return goerr.New("question is required")
			}

			a, err := appCfg.build(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.uc.Router.Route(ctx, "chat", map[string]any{
				"message":   message,
				"use_notes": !general,
				"bucket":    bucket,
				"provider":  provider,
			})
			return printChat(os.Stdout, res)
		},
	}
}

func printChat(w io.Writer, res *usecase.RouteResult) error {
	switch body := res.Body.(type) {
	case *usecase.RAGChatResponse:
		fmt.Fprintln(w, body.Content)
		meta := color.New(color.FgHiBlack)
		if len(body.Sources) > 0 {
			meta.Fprintf(w, "sources: %s\n", strings.Join(body.Sources, ", "))
		}
		meta.Fprintf(w, "confidence: %s, buckets: %s\n", body.Metadata.Confidence, strings.Join(body.Metadata.BucketsUsed, ", "))
		return nil

	case *usecase.GeneralChatResponse:
		fmt.Fprintln(w, body.Content)
		color.New(color.FgHiBlack).Fprintf(w, "provider: %s, confidence: %s\n", body.Metadata.Provider, body.Metadata.Confidence)
		return nil

	case usecase.ErrorBody:
		color.New(color.FgRed).Fprintf(w, "error: %s\n", body.Error)
		return goerr.New(body.Error, goerr.V("status", res.Status))
	}

	if res.Status != http.StatusOK {
		return goerr.New("request failed", goerr.V("status", res.Status))
	}
	return goerr.New("unexpected response", goerr.V("type", fmt.Sprintf("%T", res.Body)))
}
