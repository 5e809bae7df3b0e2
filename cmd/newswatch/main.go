package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kindwatch/internal/common"
	"github.com/ternarybob/kindwatch/internal/httpclient"
	"github.com/ternarybob/kindwatch/internal/models"
	"github.com/ternarybob/kindwatch/internal/services/export"
	"github.com/ternarybob/kindwatch/internal/services/news"
	"github.com/ternarybob/kindwatch/internal/services/notify"
)

// Default search terms when no keywords are given on the command line.
var defaultKeywords = []string{"반도체", "실적"}

// maxNewsPerKeyword caps how many headlines one Telegram message carries.
const maxNewsPerKeyword = 5

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	pressFilter  = flag.String("press", "", "Comma-separated publisher filter (default: all)")
	sendTelegram = flag.Bool("telegram", false, "Send collected headlines to Telegram")
	outputDir    = flag.String("output", "", "Output directory (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")

	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	// A .version file next to the binary overrides the compiled-in version.
	common.LoadVersionFromFile()

	if *showVersion {
		fmt.Printf("newswatch version %s\n", common.GetVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("kindwatch.toml"); err == nil {
			configFiles = append(configFiles, "kindwatch.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *outputDir, 0)

	logger = common.InitLogger(config)

	common.PrintBanner("newswatch", common.GetFullVersion())

	keywords := flag.Args()
	if len(keywords) == 0 {
		keywords = defaultKeywords
	}

	var press []string
	if *pressFilter != "" {
		for _, p := range strings.Split(*pressFilter, ",") {
			if p = strings.TrimSpace(p); p != "" {
				press = append(press, p)
			}
		}
	}

	logger.Info().
		Strs("keywords", keywords).
		Strs("press_filter", press).
		Bool("telegram", *sendTelegram).
		Msg("Starting news search")

	client := news.NewClient(config, httpclient.NewDefaultHTTPClient(10*time.Second), logger)
	if !client.Enabled() {
		logger.Fatal().Msg("Naver API credentials are not configured")
		os.Exit(1)
	}

	ctx := context.Background()
	today := time.Now().Format("2006-01-02")
	items := client.Search(ctx, keywords, press, today)
	if len(items) == 0 {
		logger.Info().Msg("No articles found")
		return
	}

	writer := export.NewWriter(config.Output.Dir, logger)
	path, err := writer.WriteNewsWorkbook(time.Now().Format("20060102"), items)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to save news workbook")
		os.Exit(1)
	}

	sent := 0
	if *sendTelegram {
		sent = dispatch(ctx, items, keywords)
	}

	logger.Info().
		Int("articles", len(items)).
		Int("notified", sent).
		Str("workbook", path).
		Msg("News run complete")
}

// dispatch sends one message per keyword with its top headlines.
func dispatch(ctx context.Context, items []models.NewsItem, keywords []string) int {
	telegram := notify.NewTelegram(config, httpclient.NewDefaultHTTPClient(15*time.Second), logger)
	if !telegram.Enabled() {
		logger.Warn().Msg("Telegram credentials are not configured, skipping dispatch")
		return 0
	}

	sent := 0
	for _, keyword := range keywords {
		var subset []models.NewsItem
		for _, it := range items {
			if it.Keyword == keyword {
				subset = append(subset, it)
			}
		}
		if len(subset) == 0 {
			continue
		}
		msg := notify.FormatNewsMessage(keyword, subset, maxNewsPerKeyword)
		if telegram.Send(ctx, msg) {
			sent++
		}
		time.Sleep(config.Telegram.SendDelay)
	}
	return sent
}
