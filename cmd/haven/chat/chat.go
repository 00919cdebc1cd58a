// Package chatcmder provides the chat command: a terminal chat with haven's
// supportive assistant, streamed as it is generated.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/haven/pkg/client"
	"github.com/papercomputeco/haven/pkg/cliui"
	"github.com/papercomputeco/haven/pkg/config"
	"github.com/papercomputeco/haven/pkg/dotdir"
	"github.com/papercomputeco/haven/pkg/logger"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/transport/canned"
	"github.com/papercomputeco/haven/pkg/transport/gateway"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("haven> ")
	crisisStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("203")).
			Padding(0, 1)
)

// offlineDelay paces canned replies like a generating model.
var offlineDelay = 40 * time.Millisecond

type chatCommander struct {
	flags config.FlagSet

	apiTarget  string
	user       string
	model      string
	gatewayURL string
	offline    bool
	direct     bool
	fresh      bool
	mood       float64
	setMood    bool

	configDir string
	debug     bool

	viper  *viper.Viper
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

var chatFlags = []string{
	config.FlagAPITarget,
	config.FlagUser,
	config.FlagGatewayModel,
	config.FlagGatewayURL,
}

const chatLongDesc string = `Start an interactive chat with haven's supportive assistant.

Replies stream in as they are generated. By default the chat runs through a
haven API server, and the session is remembered in .haven/session.json so the
next "haven chat" resumes it. Use --new to start over.

--direct streams straight from the LLM gateway without a server, and --offline
answers from a small set of canned replies with no network at all. Neither
keeps the conversation after exit.

In the chat, type /mood <0-1> to log how you feel, or /exit (or Ctrl+D) to quit.

Examples:
  haven chat
  haven chat --mood 0.4
  haven chat --direct --gateway-url http://localhost:11434 --model llama3.2
  haven chat --offline`

const chatShortDesc string = "Chat with haven's supportive assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.offline && cmder.direct {
				return fmt.Errorf("--offline and --direct cannot be used together")
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, chatFlags)
			cmder.viper = v
			cmder.apiTarget = v.GetString("client.api_target")
			cmder.user = v.GetString("client.user")
			cmder.model = v.GetString("gateway.model")
			cmder.gatewayURL = v.GetString("gateway.url")
			cmder.setMood = cmd.Flags().Changed("mood")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagUser, &cmder.user)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGatewayModel, &cmder.model)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGatewayURL, &cmder.gatewayURL)
	cmd.Flags().BoolVar(&cmder.offline, "offline", false, "Answer from canned replies without any network")
	cmd.Flags().BoolVar(&cmder.direct, "direct", false, "Stream straight from the LLM gateway without a haven server")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new session instead of resuming the saved one")
	cmd.Flags().Float64Var(&cmder.mood, "mood", 0, "Log a mood score from 0 (low) to 1 (positive) before chatting")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(c.errOut))

	b, err := c.newBackend()
	if err != nil {
		return err
	}

	session, resumed, err := b.open(ctx, c.fresh)
	if err != nil {
		return fmt.Errorf("opening chat session: %w", err)
	}

	p := cliui.NewPrinter(c.out)
	p.Println("")
	if resumed {
		p.Printf("  %s Resuming session %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(session.ID),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(session.Messages))),
		)
	} else {
		p.Printf("  %s New session\n", cliui.DimStyle.Render("●"))
	}
	p.Printf("  %s %s\n", cliui.KeyStyle.Render("Replies from:"), cliui.ValueStyle.Render(b.describe()))
	p.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Mood:"), cliui.MoodBadge(session.Mood.Latest()))

	if c.setMood {
		c.logMood(ctx, p, b, session.ID, c.mood)
	}

	if !resumed && len(session.Messages) > 0 {
		p.Printf("%s%s\n\n", assistantPrompt, session.Messages[0].Content)
	}
	p.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /mood <0-1> logs your mood, /exit or Ctrl+D quits."))

	scanner := bufio.NewScanner(c.in)
	for {
		p.Printf("%s", userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "/exit":
			p.Println("")
			return nil
		case strings.HasPrefix(input, "/mood"):
			c.moodCommand(ctx, p, b, session.ID, strings.TrimSpace(strings.TrimPrefix(input, "/mood")))
			continue
		}

		if err := c.turn(ctx, p, b, session.ID, input); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	p.Println("")
	return nil
}

// turn sends one message and streams the reply. A failed reply is reported
// and the chat goes on; only an abandoned exchange ends it.
func (c *chatCommander) turn(ctx context.Context, p *cliui.Printer, b backend, sessionID, text string) error {
	started := false
	failure := ""
	sink := sse.SinkFuncs{
		Delta: func(delta string) {
			if !started {
				p.Printf("%s", assistantPrompt)
				started = true
			}
			p.Printf("%s", delta)
		},
		Error: func(message string) {
			failure = message
		},
	}

	helpline, err := b.send(ctx, sessionID, text, sink)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.Printf("  %s %v\n\n", cliui.FailMark, err)
		return nil
	}

	if started {
		p.Println("\n")
	}
	if failure != "" {
		p.Printf("  %s %s\n\n", cliui.FailMark, failure)
	}
	if helpline != "" {
		p.Printf("%s\n\n", crisisStyle.Render(
			"If you are in crisis, please reach out for help now.\n"+
				"Find a helpline near you: "+helpline,
		))
	}
	return nil
}

func (c *chatCommander) moodCommand(ctx context.Context, p *cliui.Printer, b backend, sessionID, arg string) {
	score, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		p.Printf("  %s usage: /mood <score from 0 to 1>\n\n", cliui.FailMark)
		return
	}
	c.logMood(ctx, p, b, sessionID, score)
}

func (c *chatCommander) logMood(ctx context.Context, p *cliui.Printer, b backend, sessionID string, score float64) {
	summary, err := b.recordMood(ctx, sessionID, score)
	if err != nil {
		p.Printf("  %s %v\n\n", cliui.FailMark, err)
		return
	}
	p.Printf("  %s Mood logged: %s %s\n\n",
		cliui.SuccessMark,
		cliui.MoodBadge(summary.Latest),
		cliui.DimStyle.Render(fmt.Sprintf("(mean %.2f over %d points)", summary.Mean, summary.Points)),
	)
}

func (c *chatCommander) newBackend() (backend, error) {
	switch {
	case c.offline:
		return newLocalBackend(canned.New(canned.WithDelay(offlineDelay)), c.user, "", "canned replies (offline)", c.logger)

	case c.direct:
		tr, err := gateway.New(gateway.Config{
			BaseURL: c.gatewayURL,
			APIKey:  c.viper.GetString("gateway.api_key"),
			Model:   c.model,
			Timeout: 5 * time.Minute,
			Logger:  c.logger,
		})
		if err != nil {
			return nil, err
		}
		return newLocalBackend(tr, c.user, c.model, tr.URL(), c.logger)

	default:
		cl, err := client.New(c.apiTarget, c.user,
			client.WithHTTPClient(&http.Client{
				// Replies stream; only bound how long a whole exchange may take.
				Timeout: 5 * time.Minute,
			}),
			client.WithLogger(c.logger),
		)
		if err != nil {
			return nil, err
		}
		return &remoteBackend{
			client:    cl,
			user:      c.user,
			configDir: c.configDir,
			dotdir:    dotdir.NewManager(),
			logger:    c.logger,
		}, nil
	}
}

var (
	_ backend = (*remoteBackend)(nil)
	_ backend = (*localBackend)(nil)
)
