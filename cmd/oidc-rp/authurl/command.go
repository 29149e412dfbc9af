package authurl

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/oidc-rp/internal/business"
	"github.com/openkcm/oidc-rp/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"auth-url",
		"Prepare an authorization request",
		"Prepares an authorization request (front-channel or pushed) and prints the authorization URL with the values to retain for completing the flow",
		buildInfo,
		business.AuthURLMain,
	)
}
