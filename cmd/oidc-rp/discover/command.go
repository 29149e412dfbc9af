package discover

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/oidc-rp/internal/business"
	"github.com/openkcm/oidc-rp/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"discover",
		"Fetch provider metadata",
		"Fetches and prints the configured provider's OpenID discovery document",
		buildInfo,
		business.DiscoverMain,
	)
}
