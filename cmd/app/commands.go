package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/reconcile"
)

var userFlag = &cli.IntFlag{
	Name:    "user",
	Aliases: []string{"u"},
	Usage:   "User ID to act for",
	Value:   1,
	Sources: cli.EnvVars("ANSUZ_USER_ID"),
}

// openApp opens the application with logs on stderr so stdout stays readable.
func openApp(cmd *cli.Command, extra ...internal.Option) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := append([]internal.Option{internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)}, extra...)
	return internal.Open(opts...)
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
		},
	}
}

// consoleNotifier prints proposals instead of streaming them.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Deliver(_ context.Context, _ int64, p models.Proposal, message string) (int64, error) {
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(n.out, "%s\n%s\n\n", header(fmt.Sprintf("── handle %d ──", p.ID)), message)
	return p.ID, nil
}

func proposeCommand() *cli.Command {
	return &cli.Command{
		Name:      "propose",
		Usage:     "Generate proposals from text (argument, --file or stdin) or from pending sources",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			userFlag,
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the source text from a file"},
			&cli.IntFlag{Name: "pending", Usage: "Propose from the N oldest pending sources instead"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := openApp(cmd, internal.WithNotifier(consoleNotifier{out: os.Stdout}))
			if err != nil {
				return err
			}
			defer a.Close()

			userID := int64(cmd.Int("user"))
			green := color.New(color.FgGreen).SprintFunc()
			gray := color.New(color.FgHiBlack).SprintFunc()

			if n := int(cmd.Int("pending")); n > 0 {
				sum, err := a.Proposals.ProposePending(ctx, userID, n)
				if err != nil {
					return err
				}
				fmt.Printf("%s scanned %d, with proposals %d, posted %d, without %d %s\n",
					green("✓"), sum.Scanned, sum.WithProposals, sum.ProposalsPosted, sum.WithoutProposals,
					gray(strings.Join(sum.Engines, ",")))
				return nil
			}

			text, err := readText(cmd)
			if err != nil {
				return err
			}
			out, err := a.Proposals.ProposeText(ctx, userID, text, "cli")
			if err != nil {
				return err
			}
			fmt.Printf("%s %d proposal(s) from source %d %s\n",
				green("✓"), out.Posted(), out.SourceID, gray(fmt.Sprintf("engine=%s lang=%s", out.Engine, out.Lang)))
			return nil
		},
	}
}

func readText(cmd *cli.Command) (string, error) {
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}
	if cmd.Args().Len() > 0 {
		return strings.Join(cmd.Args().Slice(), " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Reconcile notes with the Mochi deck",
		ArgsUsage: "push|pull|both|repair",
		Flags:     []cli.Flag{userFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			action, err := reconcile.ParseAction(cmd.Args().First())
			if err != nil {
				return err
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			red := color.New(color.FgRed).SprintFunc()
			green := color.New(color.FgGreen).SprintFunc()
			gray := color.New(color.FgHiBlack).SprintFunc()

			rep, err := a.Sync.Run(ctx, int64(cmd.Int("user")), action)
			if rep.Backup != "" {
				fmt.Println(gray("backup: " + rep.Backup))
			}
			if err != nil {
				if rep.Summary != "" {
					fmt.Printf("%s partial counts:\n%s\n", red("✗"), rep.Summary)
				}
				return err
			}
			fmt.Printf("%s %s (deck %s)\n%s\n", green("✓"), action, rep.DeckID, rep.Summary)
			return nil
		},
	}
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Write a database snapshot to the backup directory",
		Flags: []cli.Flag{userFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := a.DB.Backup(ctx, a.Config.Backup.Dir, int64(cmd.Int("user")), "manual")
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func decksCommand() *cli.Command {
	return &cli.Command{
		Name:  "decks",
		Usage: "List remote decks or create one",
		Flags: []cli.Flag{
			userFlag,
			&cli.StringFlag{Name: "create", Usage: "Create a deck with this name and select it"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			userID := int64(cmd.Int("user"))
			if name := cmd.String("create"); name != "" {
				id, err := a.Sync.CreateDeck(ctx, userID, name)
				if err != nil {
					return err
				}
				fmt.Printf("%s created deck %s\n", color.GreenString("✓"), id)
				return nil
			}

			decks, err := a.Sync.Decks(ctx, userID)
			if err != nil {
				return err
			}
			creds, _ := a.Sync.Credentials(ctx, userID)
			bold := color.New(color.Bold).SprintFunc()
			gray := color.New(color.FgHiBlack).SprintFunc()
			for _, d := range decks {
				if d.IsTrashed() {
					continue
				}
				line := fmt.Sprintf("%s  %s", d.ID, d.Name)
				if d.ID == creds.DeckID {
					line = bold(line + "  (selected)")
				}
				fmt.Println(line)
			}
			if len(decks) == 0 {
				fmt.Println(gray("no decks"))
			}
			return nil
		},
	}
}
