package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/service/naver"
	"github.com/urfave/cli/v3"
)

// Naver holds credentials for the Naver news search API
type Naver struct {
	ClientID     string
	ClientSecret string `masq:"secret"`
	RateLimit    float64
}

func (n *Naver) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "naver-client-id",
			Usage:       "Naver Open API client ID",
			Category:    "Naver",
			Sources:     cli.EnvVars("NEWSRAG_NAVER_CLIENT_ID"),
			Destination: &n.ClientID,
		},
		&cli.StringFlag{
			Name:        "naver-client-secret",
			Usage:       "Naver Open API client secret",
			Category:    "Naver",
			Sources:     cli.EnvVars("NEWSRAG_NAVER_CLIENT_SECRET"),
			Destination: &n.ClientSecret,
		},
		&cli.FloatFlag{
			Name:        "naver-rate-limit",
			Usage:       "Requests per second sent to the Naver API",
			Value:       10,
			Category:    "Naver",
			Sources:     cli.EnvVars("NEWSRAG_NAVER_RATE_LIMIT"),
			Destination: &n.RateLimit,
		},
	}
}

// IsConfigured reports whether both credentials are set
func (n *Naver) IsConfigured() bool {
	return n.ClientID != "" && n.ClientSecret != ""
}

func (n *Naver) Configure() (*naver.Client, error) {
	if !n.IsConfigured() {
		return nil, goerr.Wrap(ErrMissingFlag, "naver-client-id and naver-client-secret are required",
			goerr.V(FlagKey, "naver-client-id"))
	}

	client, err := naver.New(n.ClientID, n.ClientSecret, naver.WithRateLimit(n.RateLimit))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create naver client")
	}
	return client, nil
}
