package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/debemdeboas/roteiro/internal/api"
	"github.com/debemdeboas/roteiro/internal/catalog"
	"github.com/debemdeboas/roteiro/internal/composer"
	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/db"
	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/engagement"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/logger"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/publish"
	"github.com/debemdeboas/roteiro/internal/render"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/debemdeboas/roteiro/internal/upload"
)

const defaultListLimit = 50

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:    "roteiro",
		Usage:   "Compose and publish travel tips and guides",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				EnvVars: []string{"ROTEIRO_CONFIG"},
				Usage:   "Path to the YAML config file",
			},
		},
		Before: func(c *cli.Context) error {
			rt.configPath = c.String("config")
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(rt),
			migrateCmd(rt),
			configCmd(),
			draftCmd(rt),
			tipCmd(rt),
			guideCmd(rt),
			selectCmd(rt),
			engageCmd(rt),
			commentCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withRuntime opens the stores before running action.
func withRuntime(rt *runtime, action cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := rt.open(c.Context); err != nil {
			return outputError(err)
		}
		return action(c)
	}
}

// serveCmd creates the serve command.
func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (defaults to server.host:server.port)"},
		},
		Action: func(c *cli.Context) error {
			rt.service = logger.ServiceAPI
			if err := rt.open(c.Context); err != nil {
				return outputError(err)
			}

			addr := c.String("addr")
			if addr == "" {
				addr = rt.cfg.Server.Host + ":" + rt.cfg.Server.Port
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(rt.serverDeps())
			if err := server.ListenAndServe(ctx, addr); err != nil && err != context.Canceled {
				return outputError(err)
			}
			return nil
		},
	}
}

// migrateCmd creates the migrate command.
func migrateCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and report the schema version",
		Action: withRuntime(rt, func(c *cli.Context) error {
			if rt.database == nil {
				return outputError(errors.NewPrecondition("the memory driver has no schema"))
			}
			version, err := db.CurrentVersion(c.Context, rt.database)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(c, map[string]any{
				"driver":  rt.database.Driver(),
				"version": version,
				"latest":  db.SchemaVersion(),
			})
		}),
	}
}

// configCmd creates the config command.
func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration helpers",
		Subcommands: []*cli.Command{
			{
				Name:  "example",
				Usage: "Print the default configuration as YAML",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
				},
				Action: func(c *cli.Context) error {
					out, err := config.Example()
					if err != nil {
						return outputError(err)
					}
					if path := c.String("out"); path != "" {
						if err := os.WriteFile(path, out, 0o644); err != nil {
							return outputError(fmt.Errorf(config.ErrWriteConfigContentFmt, err))
						}
						return nil
					}
					_, err = c.App.Writer.Write(out)
					return err
				},
			},
		},
	}
}

func kindArg(c *cli.Context) (draft.Kind, error) {
	kind, err := draft.ParseKind(c.Args().First())
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error() + ", expected tip or guide")
	}
	return kind, nil
}

// draftCmd creates the draft command.
func draftCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Inspect and manage saved drafts",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the saved draft",
				ArgsUsage: "<tip|guide>",
				Action: withRuntime(rt, func(c *cli.Context) error {
					kind, err := kindArg(c)
					if err != nil {
						return outputError(err)
					}
					d, ok := rt.drafts.Load(kind)
					if !ok {
						return outputError(errors.NewNotFound("draft", string(kind)))
					}
					return outputJSON(c, d)
				}),
			},
			{
				Name:      "clear",
				Usage:     "Delete the saved draft",
				ArgsUsage: "<tip|guide>",
				Action: withRuntime(rt, func(c *cli.Context) error {
					kind, err := kindArg(c)
					if err != nil {
						return outputError(err)
					}
					if err := rt.drafts.Clear(kind); err != nil {
						return outputError(errors.NewInternal(err))
					}
					return nil
				}),
			},
			{
				Name:      "import",
				Usage:     "Replace the saved draft with one read from a TOML file",
				ArgsUsage: "<file.toml>",
				Action: withRuntime(rt, func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("a TOML file is required"))
					}
					d, err := draft.ImportTOML(c.Args().First())
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					if err := rt.drafts.Save(d.Kind, d); err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(c, d)
				}),
			},
		},
	}
}

func (rt *runtime) tipComposer() *composer.TipComposer {
	return composer.NewTipComposer(rt.drafts, rt.repo, upload.New(rt.storage), composer.TipOptions{
		Author:    rt.author,
		MaxImages: rt.cfg.Content.MaxTipImages,
	})
}

func (rt *runtime) guideComposer() *composer.GuideComposer {
	return composer.NewGuideComposer(rt.drafts, rt.repo, upload.New(rt.storage), composer.GuideOptions{Author: rt.author})
}

// setIfChanged copies a string flag into dst when the user passed it.
func setIfChanged(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func readImage(path string) (composer.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return composer.Image{}, errors.NewInvalidRequest(err.Error())
	}
	return composer.Image{Name: filepath.Base(path), Data: data}, nil
}

// watchProgress prints upload progress to the error writer until the returned func is called.
func watchProgress(c *cli.Context, p *upload.Progress) func() {
	updates, cancel := p.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := -1
		for v := range updates {
			if v != last && v > 0 {
				fmt.Fprintf(c.App.ErrWriter, "Uploading... %d%%\n", v)
			}
			last = v
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// tipCmd creates the tip command.
func tipCmd(rt *runtime) *cli.Command {
	textFlags := []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
		&cli.StringFlag{Name: "location", Aliases: []string{"l"}},
		&cli.StringFlag{Name: "category"},
	}

	return &cli.Command{
		Name:  "tip",
		Usage: "Compose and publish a tip",
		Subcommands: []*cli.Command{
			{
				Name:  "edit",
				Usage: "Update the fields of the tip draft",
				Flags: textFlags,
				Action: withRuntime(rt, func(c *cli.Context) error {
					tc := rt.tipComposer()
					err := tc.Edit(func(t *draft.TipDraft) {
						setIfChanged(c, "title", &t.Title)
						setIfChanged(c, "description", &t.Description)
						setIfChanged(c, "location", &t.Location)
						if c.IsSet("category") {
							t.Category = model.Category(c.String("category"))
						}
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, tc.Draft())
				}),
			},
			{
				Name:  "image",
				Usage: "Manage the images of the tip draft",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Attach local image files",
						ArgsUsage: "<file>...",
						Action: withRuntime(rt, func(c *cli.Context) error {
							if c.NArg() == 0 {
								return outputError(errors.NewInvalidRequest("at least one image file is required"))
							}
							tc := rt.tipComposer()
							for _, path := range c.Args().Slice() {
								img, err := readImage(path)
								if err != nil {
									return outputError(err)
								}
								if err := tc.AddImage(img); err != nil {
									return outputError(err)
								}
							}
							return outputJSON(c, tc.Draft())
						}),
					},
					{
						Name:      "rm",
						Usage:     "Remove an image by its 1-based position",
						ArgsUsage: "<position>",
						Action: withRuntime(rt, func(c *cli.Context) error {
							pos, err := strconv.Atoi(c.Args().First())
							if err != nil {
								return outputError(errors.NewInvalidRequest("position must be a number"))
							}
							tc := rt.tipComposer()
							if err := tc.RemoveImage(pos - 1); err != nil {
								return outputError(err)
							}
							return outputJSON(c, tc.Draft())
						}),
					},
				},
			},
			{
				Name:  "preview",
				Usage: "Validate the tip draft and render it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: render.FormatTerminal, Usage: "term|html|json"},
				},
				Action: withRuntime(rt, func(c *cli.Context) error {
					tc := rt.tipComposer()
					if err := tc.Submit(); err != nil {
						return outputError(err)
					}
					p, err := tc.Preview()
					if err != nil {
						return outputError(err)
					}

					switch c.String("format") {
					case render.FormatTerminal:
						fmt.Fprintln(c.App.Writer, render.Terminal(p))
					case render.FormatHTML:
						_, err = c.App.Writer.Write(render.HTML(p))
					case "json":
						err = outputJSON(c, p)
					default:
						return outputError(errors.NewInvalidRequest("unknown format " + strconv.Quote(c.String("format"))))
					}
					return err
				}),
			},
			{
				Name:  "publish",
				Usage: "Validate, upload the images and publish the tip",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "for-guide", Usage: "Hand the new tip to the guide being composed"},
				},
				Action: withRuntime(rt, func(c *cli.Context) error {
					tc := rt.tipComposer()
					tc.SetForGuide(c.Bool("for-guide"))
					if err := tc.Submit(); err != nil {
						return outputError(err)
					}

					stop := watchProgress(c, tc.Progress())
					tip, err := tc.Publish(c.Context)
					stop()
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, tip)
				}),
			},
			{
				Name:  "save-draft",
				Usage: "Store the tip with draft status",
				Action: withRuntime(rt, func(c *cli.Context) error {
					tc := rt.tipComposer()
					stop := watchProgress(c, tc.Progress())
					tip, err := tc.SaveAsDraft(c.Context)
					stop()
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, tip)
				}),
			},
			{
				Name:  "discard",
				Usage: "Throw away the tip draft",
				Action: withRuntime(rt, func(c *cli.Context) error {
					if err := rt.tipComposer().Discard(); err != nil {
						return outputError(err)
					}
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "Print a stored tip",
				ArgsUsage: "<tip-id>",
				Action: withRuntime(rt, func(c *cli.Context) error {
					tip, err := rt.repo.GetTip(c.Context, model.TipID(c.Args().First()))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, tip)
				}),
			},
			{
				Name:  "list",
				Usage: "List tips by the configured user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "author", Usage: "List another user's tips"},
					&cli.IntFlag{Name: "limit", Value: defaultListLimit},
				},
				Action: withRuntime(rt, func(c *cli.Context) error {
					author := rt.author
					if a := c.String("author"); a != "" {
						author = model.UserID(a)
					}
					tips, err := rt.repo.ListTips(c.Context, author, c.Int("limit"))
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(c, tips)
				}),
			},
		},
	}
}

// guideCmd creates the guide command.
func guideCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "guide",
		Usage: "Compose and publish a guide",
		Subcommands: []*cli.Command{
			{
				Name:  "edit",
				Usage: "Update the fields of the guide draft",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringFlag{Name: "city"},
					&cli.StringFlag{Name: "category"},
				},
				Action: withRuntime(rt, func(c *cli.Context) error {
					gc := rt.guideComposer()
					err := gc.Edit(func(g *draft.GuideDraft) {
						setIfChanged(c, "title", &g.Title)
						setIfChanged(c, "description", &g.Description)
						setIfChanged(c, "city", &g.City)
						if c.IsSet("category") {
							g.Category = model.Category(c.String("category"))
						}
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, gc.Draft())
				}),
			},
			{
				Name:      "cover",
				Usage:     "Set the cover from a local file or a URL",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "Use an already hosted image"},
					&cli.BoolFlag{Name: "remove", Usage: "Remove the cover"},
				},
				Action: withRuntime(rt, func(c *cli.Context) error {
					gc := rt.guideComposer()
					var err error
					switch {
					case c.Bool("remove"):
						err = gc.RemoveCover()
					case c.String("url") != "":
						err = gc.SetCoverURL(c.String("url"))
					case c.NArg() == 1:
						var img composer.Image
						if img, err = readImage(c.Args().First()); err == nil {
							err = gc.SetCover(img)
						}
					default:
						err = errors.NewInvalidRequest("pass a file, --url or --remove")
					}
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, gc.Draft())
				}),
			},
			{
				Name:  "advance",
				Usage: "Validate the guide draft, upload its cover and move on to tip selection",
				Action: withRuntime(rt, func(c *cli.Context) error {
					gc := rt.guideComposer()
					stop := watchProgress(c, gc.Progress())
					err := gc.Advance(c.Context)
					stop()
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, gc.Draft())
				}),
			},
			{
				Name:  "save-draft",
				Usage: "Store the guide with draft status",
				Action: withRuntime(rt, func(c *cli.Context) error {
					gc := rt.guideComposer()
					stop := watchProgress(c, gc.Progress())
					guide, err := gc.SaveAsDraft(c.Context)
					stop()
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, guide)
				}),
			},
			{
				Name:  "publish",
				Usage: "Publish the guide with the selected tips",
				Action: withRuntime(rt, func(c *cli.Context) error {
					p := publish.New(rt.repo, rt.drafts, rt.author, publish.Options{
						Transactional: rt.cfg.Publish.Transactional,
					})
					guide, err := p.Publish(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, guide)
				}),
			},
			{
				Name:  "discard",
				Usage: "Throw away the guide draft and its selection",
				Action: withRuntime(rt, func(c *cli.Context) error {
					if err := rt.guideComposer().Discard(); err != nil {
						return outputError(err)
					}
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "Print a stored guide and its tips in order",
				ArgsUsage: "<guide-id>",
				Action: withRuntime(rt, func(c *cli.Context) error {
					id := model.GuideID(c.Args().First())
					guide, err := rt.repo.GetGuide(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					tips, err := rt.repo.ListGuideTips(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, struct {
						*model.Guide
						Tips []model.Tip `json:"tips"`
					}{guide, tips})
				}),
			},
		},
	}
}

type selectionOutput struct {
	Selection  []model.TipID       `json:"selection"`
	Max        int                 `json:"max"`
	Candidates []catalog.Candidate `json:"candidates,omitempty"`
	Outcome    catalog.Outcome     `json:"outcome,omitempty"`
	Notice     string              `json:"notice,omitempty"`
}

// selectCmd creates the select command.
func selectCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "select",
		Usage: "Choose and order the tips of the guide being composed",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the candidate tips and the current selection",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: defaultListLimit},
				},
				Action: withRuntime(rt, func(c *cli.Context) error {
					cat := catalog.Open(c.Context, rt.drafts, rt.repo)
					tips, err := rt.repo.ListTips(c.Context, rt.author, c.Int("limit"))
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(c, selectionOutput{
						Selection:  cat.Selection(),
						Max:        cat.Max(),
						Candidates: cat.Candidates(tips),
					})
				}),
			},
			{
				Name:      "toggle",
				Usage:     "Add a tip to the selection, or remove it",
				ArgsUsage: "<tip-id>",
				Action: withRuntime(rt, func(c *cli.Context) error {
					cat := catalog.Open(c.Context, rt.drafts, rt.repo)
					outcome, err := cat.Toggle(model.TipID(c.Args().First()))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, selectionOutput{
						Selection: cat.Selection(),
						Max:       cat.Max(),
						Outcome:   outcome,
						Notice:    cat.Notice(),
					})
				}),
			},
			{
				Name:      "move",
				Usage:     "Move the tip at a 1-based position up or down",
				ArgsUsage: "<position> <up|down>",
				Action: withRuntime(rt, func(c *cli.Context) error {
					pos, err := strconv.Atoi(c.Args().Get(0))
					if err != nil {
						return outputError(errors.NewInvalidRequest("position must be a number"))
					}
					dir, err := catalog.ParseDirection(c.Args().Get(1))
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}

					cat := catalog.Open(c.Context, rt.drafts, rt.repo)
					if _, err := cat.Reorder(pos-1, dir); err != nil {
						return outputError(err)
					}
					return outputJSON(c, selectionOutput{Selection: cat.Selection(), Max: cat.Max()})
				}),
			},
			{
				Name:  "continue",
				Usage: "Confirm the selection before publishing",
				Action: withRuntime(rt, func(c *cli.Context) error {
					cat := catalog.Open(c.Context, rt.drafts, rt.repo)
					if err := cat.Continue(); err != nil {
						return outputError(err)
					}
					return outputJSON(c, selectionOutput{Selection: cat.Selection(), Max: cat.Max()})
				}),
			},
			{
				Name:  "abandon",
				Usage: "Drop the selection and the guide draft",
				Action: withRuntime(rt, func(c *cli.Context) error {
					if err := catalog.Open(c.Context, rt.drafts, rt.repo).Abandon(); err != nil {
						return outputError(err)
					}
					return nil
				}),
			},
		},
	}
}

// engageCmd creates the engage command.
func engageCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "engage",
		Usage:     "Toggle a like, save or follow",
		ArgsUsage: "<like|save|follow> <target-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "status", Usage: "Only print the current state"},
		},
		Action: withRuntime(rt, func(c *cli.Context) error {
			kind, err := model.ParseEdgeKind(c.Args().Get(0))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			target := strings.TrimSpace(c.Args().Get(1))
			if target == "" {
				return outputError(errors.NewInvalidRequest("target is required"))
			}

			service := engagement.NewService(rt.repo)
			toggle := service.Toggle(kind, rt.author, target)
			state, err := toggle.Mount(c.Context)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if !c.Bool("status") {
				state = toggle.Toggle(c.Context)
				service.Wait()
			}
			return outputJSON(c, state)
		}),
	}
}

// commentCmd creates the comment command.
func commentCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "comment",
		Usage: "Comment on tips",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a comment to a tip",
				ArgsUsage: "<tip-id> <text>...",
				Action: withRuntime(rt, func(c *cli.Context) error {
					args := c.Args().Slice()
					if len(args) < 2 {
						return outputError(errors.NewInvalidRequest("a tip id and the comment text are required"))
					}
					text, err := composer.ValidateComment(strings.Join(args[1:], " "))
					if err != nil {
						return outputError(err)
					}
					comment, err := rt.repo.AddComment(c.Context, model.TipID(args[0]), rt.author, text)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, comment)
				}),
			},
			{
				Name:      "list",
				Usage:     "List the comments of a tip",
				ArgsUsage: "<tip-id>",
				Action: withRuntime(rt, func(c *cli.Context) error {
					comments, err := rt.repo.ListComments(c.Context, model.TipID(c.Args().First()))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, comments)
				}),
			},
		},
	}
}

// outputJSON writes v as indented JSON to the app's writer.
func outputJSON(c *cli.Context, v any) error {
	return writeJSON(c.App.Writer, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if rErr, ok := errors.As(err); ok {
		msg := fmt.Sprintf("[%s] %s", rErr.Code, rErr.Message)
		fields := make([]string, 0, len(rErr.Fields))
		for field := range rErr.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			msg += fmt.Sprintf("\n  %s: %s", field, rErr.Fields[field])
		}
		return cli.Exit(msg, 1)
	}
	var nf *repository.NotFoundError
	if stderrors.As(err, &nf) {
		return cli.Exit(fmt.Sprintf("[%s] %s", errors.ErrNotFound, nf.Error()), 1)
	}
	return cli.Exit(err.Error(), 1)
}
