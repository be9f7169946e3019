package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finitefield.org/docs-web/internal/cms"
	"finitefield.org/docs-web/internal/loader"
	"finitefield.org/docs-web/internal/markdown"
	"finitefield.org/docs-web/internal/nav"
	"finitefield.org/docs-web/internal/site"
)

func newRenderCmd(v *viper.Viper) *cobra.Command {
	var base, lang string
	cmd := &cobra.Command{
		Use:   "render PATH[#hash]",
		Short: "Render one docs page to stdout",
		Long: "Render loads a docs page the way the site does and prints its HTML.\n" +
			"Markdown is read from --base when set, else from the public directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if base != "" {
				cfg.ContentBaseURL = base
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, lang, args[0])
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "site base URL to fetch markdown from")
	cmd.Flags().StringVar(&lang, "lang", "", "language of the page (default from the path's lang query)")
	return cmd
}

// runRender writes the rendered page to out and a short summary to errOut.
func runRender(ctx context.Context, out, errOut io.Writer, cfg config, lang, target string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	loc, err := nav.ParseLocation(target)
	if err != nil {
		return fmt.Errorf("render: parse %q: %w", target, err)
	}
	if lang != "" {
		loc.Lang = lang
	}

	langs := loader.DefaultLanguages()
	var menus *nav.Synchronizer
	title := ""
	if st, err := site.Load(cfg.SiteFile); err == nil {
		langs = loader.Languages{Supported: st.Languages, Default: st.DefaultLanguage}
		name := strings.SplitN(strings.TrimPrefix(loc.Path, "/"), "/", 2)[0]
		if m, err := st.Module(name); err == nil {
			effective := langs.Segment(loc.Lang)
			menus = m.Menus(effective, st.DefaultLanguage)
			slug := strings.TrimPrefix(loc.Path, m.DocsHref())
			if p, ok := m.Page(slug); ok {
				title = m.PageTitle(p, effective, st.DefaultLanguage)
			}
		}
	}

	docs := cms.NewClient(cfg.ContentBaseURL)
	docs.SetContentDir(cfg.PublicDir)
	docs.SetCacheDuration(0)

	region := &loader.Buffer{}
	history := &loader.Recorder{}
	ld := loader.New(docs, markdown.New(), nav.NewContext(loc, langs.Default), region, history,
		loader.WithSynchronizer(menus),
		loader.WithLanguages(langs),
	)
	res, err := ld.Load(ctx, loc.Path, title)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, string(region.Content())); err != nil {
		return err
	}
	fmt.Fprintf(errOut, "title: %s\nurl: %s\nmarkdown: %s\n", res.Title, res.URL, res.Markdown)
	if res.Anchor != "" {
		fmt.Fprintf(errOut, "anchor: %s\n", res.Anchor)
	}
	if menus != nil {
		if e, ok := menus.Sidebar.ActiveEntry(); ok {
			fmt.Fprintf(errOut, "sidebar: %s\n", e.Label)
		}
		if e, ok := menus.Navbar.ActiveEntry(); ok {
			fmt.Fprintf(errOut, "navbar: %s\n", e.Label)
		}
	}
	return nil
}
