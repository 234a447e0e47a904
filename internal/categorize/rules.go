package categorize

import (
	"fmt"
	"regexp"
	"strings"
)

// Category labels of the default vocabulary.
const (
	Development   = "Development"
	AI            = "AI"
	Learning      = "Learning"
	News          = "News"
	Video         = "Video"
	Social        = "Social"
	Shopping      = "Shopping"
	Design        = "Design"
	Tools         = "Tools"
	Finance       = "Finance"
	Entertainment = "Entertainment"
	Reference     = "Reference"
	Uncategorized = "Uncategorized"
)

// DefaultVocabulary lists the categories in display order.
var DefaultVocabulary = []string{
	Development, AI, Learning, News, Video, Social, Shopping,
	Design, Tools, Finance, Entertainment, Reference, Uncategorized,
}

// DomainRule assigns Category to URLs matching Pattern. Curated rules are hand
// picked domains and raise confidence.
type DomainRule struct {
	Pattern  *regexp.Regexp
	Category string
	Curated  bool
}

// KeywordRule assigns Category when any keyword occurs in the lowercased title.
type KeywordRule struct {
	Category string
	Keywords []string
}

// Rules are tried in order: domain rules first, then keyword rules.
type Rules struct {
	Domains  []DomainRule
	Keywords []KeywordRule
}

// DomainPattern builds a regexp matching URLs whose host is one of domains or a
// subdomain of one.
func DomainPattern(domains ...string) (*regexp.Regexp, error) {
	quoted := make([]string, len(domains))
	for i, d := range domains {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(d)))
	}
	return regexp.Compile(`^[a-z][a-z0-9+.-]*://([^/?#@]*@)?([a-z0-9-]+\.)*(` +
		strings.Join(quoted, "|") + `)(:[0-9]+)?([/?#]|$)`)
}

func curated(category string, domains ...string) DomainRule {
	re, err := DomainPattern(domains...)
	if err != nil {
		panic(fmt.Sprintf("bad domain rule %v: %v", domains, err))
	}
	return DomainRule{Pattern: re, Category: category, Curated: true}
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() Rules {
	return Rules{
		Domains: []DomainRule{
			curated(Development, "github.com", "gitlab.com", "bitbucket.org", "stackoverflow.com",
				"stackexchange.com", "npmjs.com", "pkg.go.dev", "go.dev", "developer.mozilla.org",
				"docs.python.org", "crates.io", "pypi.org", "hub.docker.com"),
			curated(AI, "openai.com", "chatgpt.com", "anthropic.com", "claude.ai",
				"huggingface.co", "gemini.google.com", "perplexity.ai"),
			curated(Video, "youtube.com", "youtu.be", "vimeo.com", "bilibili.com", "twitch.tv"),
			curated(Social, "twitter.com", "x.com", "facebook.com", "instagram.com",
				"linkedin.com", "reddit.com", "weibo.com", "mastodon.social", "bsky.app"),
			curated(News, "news.ycombinator.com", "bbc.com", "bbc.co.uk", "cnn.com", "nytimes.com",
				"theverge.com", "techcrunch.com", "arstechnica.com"),
			curated(Shopping, "amazon.com", "ebay.com", "taobao.com", "jd.com", "aliexpress.com", "etsy.com"),
			curated(Learning, "coursera.org", "udemy.com", "edx.org", "khanacademy.org", "leetcode.com"),
			curated(Design, "figma.com", "dribbble.com", "behance.net", "canva.com"),
			curated(Finance, "paypal.com", "coinbase.com", "binance.com", "bloomberg.com", "investing.com"),
			curated(Entertainment, "netflix.com", "spotify.com", "imdb.com", "steampowered.com"),
			curated(Reference, "wikipedia.org", "wiktionary.org", "archive.org"),
			{Pattern: regexp.MustCompile(`^https?://(docs|developer|devdocs)\.`), Category: Reference},
			{Pattern: regexp.MustCompile(`^https?://[^/]*\.(dev|io)([:/?#]|$)`), Category: Development},
		},
		Keywords: []KeywordRule{
			{Development, []string{"github", "gitlab", "repo", "api", "programming", "developer", "golang",
				"python", "javascript", "typescript", "docker", "kubernetes", "开发", "编程", "代码"}},
			{AI, []string{"gpt", "llm", "openai", "machine learning", "neural", "人工智能"}},
			{Learning, []string{"tutorial", "course", "learn", "guide", "lesson", "教程", "学习", "课程"}},
			{News, []string{"news", "daily", "weekly", "breaking", "新闻", "资讯"}},
			{Video, []string{"video", "youtube", "stream", "视频"}},
			{Design, []string{"design", "figma", "icon", "font", "palette", "设计"}},
			{Shopping, []string{"shop", "store", "buy", "deal", "price", "购物", "商城"}},
			{Social, []string{"community", "forum", "social", "社区", "论坛"}},
			{Tools, []string{"tool", "converter", "generator", "online", "editor", "工具"}},
			{Finance, []string{"finance", "bank", "stock", "crypto", "invest", "金融", "股票"}},
			{Entertainment, []string{"game", "music", "movie", "anime", "游戏", "音乐", "电影"}},
			{Reference, []string{"wiki", "docs", "documentation", "reference", "manual", "文档", "手册"}},
		},
	}
}

// CustomRule is a user supplied domain rule.
type CustomRule struct {
	Domains  []string `yaml:"domains" json:"domains"`
	Category string   `yaml:"category" json:"category"`
}

// WithCustom returns rules with the custom domain rules tried before the
// built-in ones. Custom rules count as curated.
func (r Rules) WithCustom(custom []CustomRule) (Rules, error) {
	if len(custom) == 0 {
		return r, nil
	}
	domains := make([]DomainRule, 0, len(custom)+len(r.Domains))
	for _, c := range custom {
		if c.Category == "" || len(c.Domains) == 0 {
			return Rules{}, fmt.Errorf("custom rule needs a category and domains: %+v", c)
		}
		re, err := DomainPattern(c.Domains...)
		if err != nil {
			return Rules{}, fmt.Errorf("compile custom rule %s: %w", c.Category, err)
		}
		domains = append(domains, DomainRule{Pattern: re, Category: c.Category, Curated: true})
	}
	r.Domains = append(domains, r.Domains...)
	return r, nil
}
