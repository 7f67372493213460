package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GabrielGBraga/mise/browse"
	"github.com/GabrielGBraga/mise/composer"
	"github.com/GabrielGBraga/mise/guard"
	"github.com/GabrielGBraga/mise/picker"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cli.Command{
		Name:  "mise",
		Usage: "Browse and write recipes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "backend URL (default from ~/.mise/config.json)"},
		},
		Commands: []*cli.Command{
			signUpCommand(),
			signInCommand(),
			signOutCommand(),
			whoAmICommand(),
			sessionCommand(),
			recipesCommand(),
			elementsCommand(),
		},
	}

	if err := root.Run(ctx, args); err != nil {
		log.Fatal(err)
	}
}

// withRoute opens the app on route and runs body only when the guard lets
// the command stay there.
func withRoute(route guard.Route, body func(ctx context.Context, c *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		a, err := openApp(ctx, c.Root().String("server"), route)
		if err != nil {
			return err
		}
		if a.redirected(route) {
			if err := a.persist(); err != nil {
				return err
			}
			if a.nav.Current() == guard.SignIn {
				return errSignedOut
			}
			fmt.Printf("already signed in as %s\n", a.session.Snapshot().Session.User.Email)
			return nil
		}
		runErr := body(ctx, c, a)
		if err := a.persist(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "email", Required: true},
		&cli.StringFlag{Name: "password", Required: true},
	}
}

func signUpCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account and sign in",
		Flags: credentialFlags(),
		Action: withRoute(guard.SignUp, func(ctx context.Context, c *cli.Command, a *app) error {
			sess, err := a.client.SignUp(ctx, c.String("email"), c.String("password"))
			if err != nil {
				return fmt.Errorf("sign up failed: %w", err)
			}
			fmt.Printf("signed up as %s\n", sess.User.Email)
			return nil
		}),
	}
}

func signInCommand() *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in and store the session",
		Flags: credentialFlags(),
		Action: withRoute(guard.SignIn, func(ctx context.Context, c *cli.Command, a *app) error {
			sess, err := a.client.SignIn(ctx, c.String("email"), c.String("password"))
			if err != nil {
				return fmt.Errorf("sign in failed: %w", err)
			}
			fmt.Printf("signed in as %s\n", sess.User.Email)
			return nil
		}),
	}
}

func signOutCommand() *cli.Command {
	return &cli.Command{
		Name:  "signout",
		Usage: "Sign out and forget the stored session",
		Action: withRoute(guard.Recipes, func(ctx context.Context, c *cli.Command, a *app) error {
			if err := a.client.SignOut(ctx); err != nil {
				log.Printf("⚠️ sign out: %v", err)
			}
			fmt.Println("signed out")
			return nil
		}),
	}
}

func whoAmICommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: withRoute(guard.Recipes, func(ctx context.Context, c *cli.Command, a *app) error {
			sess := a.session.Snapshot().Session
			if c.Bool("json") {
				return printJSON(sess)
			}
			printKV([][2]string{
				{"id", sess.User.ID},
				{"email", sess.User.Email},
				{"expires", formatTime(sess.ExpiresAt)},
			})
			return nil
		}),
	}
}

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Session commands",
		Commands: []*cli.Command{
			{
				Name:  "watch",
				Usage: "Follow session changes pushed by the backend",
				Action: withRoute(guard.Recipes, func(ctx context.Context, c *cli.Command, a *app) error {
					events, unsubscribe := a.client.OnAuthChange(8)
					printed := make(chan struct{})
					go func() {
						defer close(printed)
						for ev := range events {
							fmt.Printf("%s\n", ev.Type)
							if err := a.persist(); err != nil {
								log.Printf("⚠️ %v", err)
							}
						}
					}()
					err := a.client.Watch(ctx)
					unsubscribe()
					<-printed
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}),
			},
		},
	}
}

func recipesCommand() *cli.Command {
	return &cli.Command{
		Name:  "recipes",
		Usage: "Recipe commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recipes, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Usage: "only titles containing this text"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: withRoute(guard.Recipes, func(ctx context.Context, c *cli.Command, a *app) error {
					list := browse.NewList(a.client)
					out, err := list.SetSearch(ctx, c.String("search"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRecipes(out)
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "Show one recipe with its ingredients and steps",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: withRoute("recipes/detail", func(ctx context.Context, c *cli.Command, a *app) error {
					id := c.Args().First()
					if id == "" {
						return errors.New("recipe id is required")
					}
					d, err := browse.Detail(ctx, a.client, id)
					if errors.Is(err, browse.ErrNotFound) {
						return fmt.Errorf("recipe %s not found", id)
					}
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(d)
					}
					printDetail(a.client, d)
					return nil
				}),
			},
			{
				Name:  "compose",
				Usage: "Create a recipe from a JSON form",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "path to the recipe form JSON"},
					&cli.StringFlag{Name: "image", Usage: "cover image to upload"},
				},
				Action: withRoute("recipes/new", func(ctx context.Context, c *cli.Command, a *app) error {
					f, err := readForm(c.String("file"))
					if err != nil {
						return err
					}
					form, err := buildForm(ctx, a.client, f, c.String("image"))
					if err != nil {
						return err
					}
					rec, err := composer.New(a.client, a.session).Submit(ctx, form)
					if err != nil {
						return errors.New(composer.Message(err))
					}
					fmt.Printf("created recipe %s (%s)\n", rec.ID.Hex(), rec.Title)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete one of your recipes",
				ArgsUsage: "<id>",
				Action: withRoute(guard.Recipes, func(ctx context.Context, c *cli.Command, a *app) error {
					id := c.Args().First()
					if id == "" {
						return errors.New("recipe id is required")
					}
					if err := a.client.DeleteRecipe(ctx, id); err != nil {
						return err
					}
					fmt.Printf("deleted recipe %s\n", id)
					return nil
				}),
			},
		},
	}
}

func elementsCommand() *cli.Command {
	return &cli.Command{
		Name:  "elements",
		Usage: "Ingredient catalog commands",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search the ingredient catalog",
				ArgsUsage: "<query>",
				Action: withRoute("recipes/new", func(ctx context.Context, c *cli.Command, a *app) error {
					p := picker.New(a.client, nil)
					p.Open()
					p.Search(ctx, c.Args().First())
					printElements(p.Results())
					return nil
				}),
			},
		},
	}
}
