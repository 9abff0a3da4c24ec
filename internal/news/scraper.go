package news

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Source 网页新闻源定义
type Source struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	Item      string `yaml:"item"`    // 单条新闻容器选择器
	Title     string `yaml:"title"`   // 标题选择器
	Link      string `yaml:"link"`    // 链接选择器，取 href
	Summary   string `yaml:"summary"` // 摘要选择器，可为空
	MaxItems  int    `yaml:"max_items"`
	UserAgent string `yaml:"user_agent"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources 读取新闻源定义文件
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取新闻源文件失败: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析新闻源文件失败: %w", err)
	}

	sources := file.Sources[:0]
	for _, s := range file.Sources {
		if s.URL == "" || s.Item == "" || s.Title == "" {
			zap.L().Warn("⚠️ 跳过不完整的新闻源", zap.String("name", s.Name))
			continue
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// Scraper 网页标题抓取器
type Scraper struct {
	sources []Source
	timeout time.Duration
	proxy   string
}

func NewScraper(sources []Source, timeout time.Duration, proxy string) *Scraper {
	return &Scraper{
		sources: sources,
		timeout: timeout,
		proxy:   proxy,
	}
}

// Scrape 依次抓取所有新闻源，单个源失败不影响其他源
func (s *Scraper) Scrape() []RawArticle {
	var articles []RawArticle
	for _, source := range s.sources {
		items, err := s.scrapeSource(source)
		if err != nil {
			zap.L().Warn("抓取新闻源失败", zap.String("source", source.Name), zap.Error(err))
			continue
		}
		articles = append(articles, items...)
	}

	zap.L().Info("📰 网页新闻抓取完成",
		zap.Int("sources", len(s.sources)),
		zap.Int("articles", len(articles)))
	return articles
}

func (s *Scraper) scrapeSource(source Source) ([]RawArticle, error) {
	base, err := url.Parse(source.URL)
	if err != nil {
		return nil, fmt.Errorf("新闻源地址无效: %w", err)
	}

	maxItems := source.MaxItems
	if maxItems <= 0 {
		maxItems = 20
	}
	userAgent := source.UserAgent
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; Gold-Signal-Sentry/1.0)"
	}

	c := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.MaxDepth(1),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(s.timeout)
	if s.proxy != "" {
		if err := c.SetProxy(s.proxy); err != nil {
			zap.L().Warn("⚠️ 抓取器代理设置失败", zap.Error(err))
		}
	}

	now := time.Now().UTC()
	var articles []RawArticle
	c.OnHTML(source.Item, func(e *colly.HTMLElement) {
		if len(articles) >= maxItems {
			return
		}

		title := strings.TrimSpace(e.ChildText(source.Title))
		if title == "" {
			return
		}

		var link string
		if source.Link != "" {
			link = e.Request.AbsoluteURL(e.ChildAttr(source.Link, "href"))
		}
		var summary string
		if source.Summary != "" {
			summary = strings.TrimSpace(e.ChildText(source.Summary))
		}

		articles = append(articles, RawArticle{
			Title:   title,
			Summary: summary,
			Source:  source.Name,
			URL:     link,
			Time:    now,
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("抓取失败 %s (HTTP %d): %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(source.URL); err != nil {
		return nil, fmt.Errorf("访问 %s 失败: %w", source.URL, err)
	}
	c.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	return articles, nil
}
