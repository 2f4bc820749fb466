package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/supgate-ai/supgate/internal/config"
	"github.com/supgate-ai/supgate/internal/guard"
	"github.com/supgate-ai/supgate/internal/proof"
	"github.com/supgate-ai/supgate/internal/risk"
)

var signCmd = &cobra.Command{
	Use:   "sign [payload.json]",
	Short: "Score a request payload offline and print its signed proof",
	Long: `Reads a request envelope from the given file (or stdin when the argument
is - or omitted), computes the risk vector and prints the vector together
with its HMAC signature. Useful for verifying signatures captured from
X-SUP-Signature headers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath())
		if err != nil {
			return err
		}

		var raw []byte
		if len(args) == 0 || args[0] == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		var env guard.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}

		vec := risk.NewBuilder(nil).Compute(risk.Input{
			Prompt:   env.Prompt,
			Copy:     env.Copy,
			Proof:    env.Proof,
			Perf:     env.Perf,
			UX:       env.UX,
			A11yPass: env.A11yPass,
		})

		sig, err := proof.NewSigner(cfg.Proof.Secret).Sign(env.PageID, cfg.Policy.Version, vec)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(map[string]any{
			"pageId":         env.PageID,
			"policy_version": cfg.Policy.Version,
			"risk":           vec,
			"signature":      sig,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
