package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/docs-web/internal/site"
)

const siteYAML = `
languages: [en-US, zh-CN]
language_labels: { en-US: English (US), zh-CN: 中文 (简体) }
modules:
  - module: sfn
    name: SFN
    install: npm i sfn
    description: { en-US: A framework, zh-CN: 一个框架 }
    footer_note: { zh-CN: 桂ICP备15001693号 }
    features:
      - { title: { en-US: Easy }, body: { en-US: "<strong>sfn</strong> is easy" } }
    navbar:
      - { href: /sfn/, label: { en-US: Home } }
    sidebar:
      - { slug: getting-started, label: { en-US: Getting Started } }
`

func TestBuildHomeData(t *testing.T) {
	s, err := site.Parse([]byte(siteYAML))
	require.NoError(t, err)

	home := BuildHomeData(s.First(), "zh-CN", "en-US")
	require.Equal(t, "一个框架", home.Description)
	require.Equal(t, "/sfn/docs/", home.DocsHref)
	require.Equal(t, int64(150), home.FrameMillis)
	require.Contains(t, home.InstallFrames, `"npm i sfn"`)
	require.Len(t, home.Features, 1)
}

func TestBuildPageData(t *testing.T) {
	s, err := site.Parse([]byte(siteYAML))
	require.NoError(t, err)
	m := s.First()

	pd := BuildPageData(s, m, "zh-CN", "/sfn/", m.Menus("zh-CN", "en-US"))
	require.Equal(t, "?lang=en-US", pd.LangSwitchHref)
	require.Equal(t, "English (US)", pd.LangSwitchLabel)
	require.Equal(t, "桂ICP备15001693号", pd.FooterNote)
	require.Len(t, pd.Navbar, 1)
	require.Len(t, pd.Sidebar, 1)

	pd = BuildPageData(s, m, "en-US", "/sfn/", nil)
	require.Empty(t, pd.FooterNote)
	require.Nil(t, pd.Navbar)
}

func TestAnalyticsEnabled(t *testing.T) {
	t.Setenv("DOCS_WEB_GA_MEASUREMENT_ID", "")
	t.Setenv("DOCS_WEB_GTM_CONTAINER_ID", "")
	require.False(t, LoadAnalyticsFromEnv().Enabled())
	t.Setenv("DOCS_WEB_GA_MEASUREMENT_ID", "G-TEST")
	require.True(t, LoadAnalyticsFromEnv().Enabled())
}
