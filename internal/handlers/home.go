package handlers

import (
	"finitefield.org/docs-web/internal/site"
	"finitefield.org/docs-web/internal/typein"
)

// HomeView is the view model for a module home page.
type HomeView struct {
	Name        string
	Description string
	Install     string
	// InstallFrames is the JSON list of typing frames for Install.
	InstallFrames string
	// FrameMillis is the delay between frames.
	FrameMillis int64
	Features    []site.FeatureView
	DocsHref    string
	Repository  string
}

// BuildHomeData constructs the home view of module m in lang.
func BuildHomeData(m *site.Module, lang, fallback string) HomeView {
	return HomeView{
		Name:          m.Name,
		Description:   m.Description.In(lang, fallback),
		Install:       m.Install,
		InstallFrames: typein.JSON(typein.Frames(m.Install, typein.DefaultPlaceholder)),
		FrameMillis:   typein.Interval("slow").Milliseconds(),
		Features:      m.FeaturesIn(lang, fallback),
		DocsHref:      m.DocsHref(),
		Repository:    m.Repository,
	}
}
