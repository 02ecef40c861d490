package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/feedbackwatch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis over MCP stdio",
	Long: `Start a Model Context Protocol stdio server so an assistant can query
feedback scores during a conversation. The server exposes four tools:

  get_competency_scores  Weighted competency scores with confidence levels
  get_coverage           Request, response and insight counts per relationship
  get_suggestions        Ranked development recommendations
  review_feedback        Quality review of one request's written feedback

Example MCP client configuration:
  {"mcpServers":{"feedbackwatch":{"command":"feedbackwatch","args":["mcp"]}}}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	if len(flagData) > 0 {
		env.cfg.DataDir = flagData[0]
	}
	srv := mcp.NewServer(env.cfg, env.engine, appVersion, env.logger)
	return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
}
