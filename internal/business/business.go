// Package business wires the configuration into a relying-party client
// and implements the CLI commands on top of it.
package business

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oidc-rp/internal/config"
	"github.com/openkcm/oidc-rp/pkg/discovery"
	"github.com/openkcm/oidc-rp/pkg/rp"
)

// Output is where command results are printed. Tests redirect it.
var Output io.Writer = os.Stdout

// DiscoverMain fetches and prints the provider's discovery document.
func DiscoverMain(ctx context.Context, cfg *config.Config) error {
	client := discovery.NewClient(httpClient(cfg))

	conf, err := client.Fetch(ctx, cfg.RelyingParty.IssuerURL)
	if err != nil {
		return fmt.Errorf("fetching the discovery document: %w", err)
	}

	return printJSON(conf)
}

// AuthURLMain prepares an authorization request and prints the URL
// along with the single-use values the caller must retain to complete
// the flow.
func AuthURLMain(ctx context.Context, cfg *config.Config) error {
	client, err := NewClient(cfg)
	if err != nil {
		return fmt.Errorf("initialising the relying party client: %w", err)
	}

	var flow *rp.Flow
	if cfg.RelyingParty.UsePushedAuthorization {
		flow, err = client.BeginPushedAuthorization(ctx)
	} else {
		flow, err = client.BeginAuthorization(ctx)
	}
	if err != nil {
		return fmt.Errorf("preparing the authorization request: %w", err)
	}

	slogctx.Info(ctx, "Prepared an authorization request",
		"issuer", cfg.RelyingParty.IssuerURL,
		"pushed", cfg.RelyingParty.UsePushedAuthorization)

	return printJSON(map[string]string{
		"authorization_url": flow.AuthorizationURL,
		"state":             flow.Prepared.State,
		"nonce":             flow.Prepared.Nonce,
		"code_verifier":     flow.Prepared.CodeVerifier,
	})
}

// NewClient builds the relying-party client from the loaded config.
func NewClient(cfg *config.Config) (*rp.Client, error) {
	auth, err := config.MakeClientAuth(cfg.RelyingParty.ClientAuth)
	if err != nil {
		return nil, fmt.Errorf("loading client credentials: %w", err)
	}

	return rp.New(rp.Config{
		IssuerURL:            cfg.RelyingParty.IssuerURL,
		RedirectURI:          cfg.RelyingParty.RedirectURI,
		Scope:                cfg.RelyingParty.Scope,
		ClientAuth:           auth,
		ExtraParamsAuthorize: config.MakeQueryValues(cfg.RelyingParty.AdditionalQueryParametersAuthorize),
		ExtraParamsToken:     config.MakeQueryValues(cfg.RelyingParty.AdditionalQueryParametersToken),
		Tolerance:            cfg.RelyingParty.Tolerance,
		HTTPClient:           httpClient(cfg),
	})
}

func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RelyingParty.RequestTimeout}
}

func printJSON(v any) error {
	enc := json.NewEncoder(Output)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
