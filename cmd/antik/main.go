package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"

	"localhost-23231/antik/internal/browser"
	"localhost-23231/antik/internal/profile"
	"localhost-23231/antik/internal/report"
	"localhost-23231/antik/internal/scenario"
	"localhost-23231/antik/internal/session"
	"localhost-23231/antik/internal/task"
	"localhost-23231/antik/internal/totp"
)

// CLI flags structure
type CLI struct {
	Dir            string        `help:"Profiles directory" default:"profiles" short:"d"`
	Reports        string        `help:"Directory for finished-task reports" default:"reports"`
	Passphrase     string        `help:"Encrypt profile metadata at rest" env:"ANTIK_PASSPHRASE"`
	Headless       bool          `help:"Run browsers without a window"`
	AttentionGrace time.Duration `help:"Pause after a captcha before continuing" default:"30s"`
	Debug          bool          `help:"Enable debug logging" default:"false"`

	Create     CreateCmd     `cmd:"" help:"Create a profile"`
	Delete     DeleteCmd     `cmd:"" help:"Delete a profile and its browser session"`
	List       ListCmd       `cmd:"" help:"List profiles"`
	Import     ImportCmd     `cmd:"" help:"Bulk-import profiles from an Excel workbook"`
	Sample     SampleCmd     `cmd:"" help:"Write a sample import workbook"`
	Open       OpenCmd       `cmd:"" help:"Open a profile's browser on a URL"`
	Login      LoginCmd      `cmd:"" help:"Sign a profile in to the exchange"`
	CheckProxy CheckProxyCmd `cmd:"" name:"check-proxy" help:"Compare a profile's proxy IP against an IP-echo page"`
	Short      ShortCmd      `cmd:"" help:"Open a short futures position"`
	Long       LongCmd       `cmd:"" help:"Open a long futures position"`
	Inspect    InspectCmd    `cmd:"" help:"Open a page for selector inspection"`
	Code       CodeCmd       `cmd:"" help:"Print a profile's current 2FA code"`
	Tui        TuiCmd        `cmd:"" default:"1" help:"Interactive dashboard"`
}

// appEnv is the shared state handed to every subcommand.
type appEnv struct {
	store    *profile.Store
	runner   *task.Runner
	reports  *report.Writer
	headless bool
}

// writeReport records a finished task; failures to write are logged, never fatal.
func (e *appEnv) writeReport(name, scenarioName string, start time.Time, payload map[string]any, taskErr error) {
	entry := report.Entry{
		Profile:   name,
		Scenario:  scenarioName,
		StartedAt: start,
		Duration:  time.Since(start),
		Payload:   payload,
	}
	if taskErr != nil {
		entry.Error = taskErr.Error()
	}
	if err := e.reports.Write(entry); err != nil {
		log.Error("Failed to write task report", "profile", name, "error", err)
	}
}

// runTask drives one headless task to completion, echoing its progress on a
// terminal spinner. A browser left open by the scenario is closed on Ctrl+C.
func (e *appEnv) runTask(name string, sc task.Scenario) error {
	start := time.Now()
	t, err := e.runner.Start(name, sc, e.headless)
	if err != nil {
		return err
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = fmt.Sprintf(" %s: %s", name, sc.Name)
	sp.Start()

	for ev := range t.Events() {
		switch ev.Kind {
		case task.EventLog:
			sp.Suffix = fmt.Sprintf(" %s: %s", name, ev.Message)
		case task.EventNeedsAttention:
			sp.Stop()
			log.Warn(ev.Message, "profile", name)
			sp.Start()
		}
	}
	sp.Stop()

	payload, err := t.Result()
	e.writeReport(name, sc.Name, start, payload, err)
	if err != nil {
		return err
	}

	log.Info("Task finished", "profile", name, "scenario", sc.Name)
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, payload[k])
	}

	if t.Browser() != nil {
		log.Info("Browser left open, press Ctrl+C to close", "profile", name)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		<-ctx.Done()
		stop()
		e.runner.Cancel(name)
	}
	return nil
}

type CreateCmd struct {
	Name        string `arg:"" help:"Profile name"`
	Email       string `help:"Account email" short:"e"`
	Password    string `help:"Account password" short:"p"`
	Proxy       string `help:"Proxy as [scheme://][user:pass@]host:port"`
	Twofa       string `help:"Base32 TOTP seed" name:"2fa"`
	Description string `help:"Free-form note"`
}

func (c *CreateCmd) Run(e *appEnv) error {
	err := e.store.Create(c.Name, profile.Info{
		Description: c.Description,
		Email:       c.Email,
		Password:    c.Password,
		Proxy:       c.Proxy,
		TwoFASecret: c.Twofa,
	})
	if err != nil {
		return err
	}
	log.Info("Profile created", "name", c.Name)
	return nil
}

type DeleteCmd struct {
	Name string `arg:"" help:"Profile name"`
}

func (c *DeleteCmd) Run(e *appEnv) error {
	if e.runner.Busy(c.Name) {
		return fmt.Errorf("profile %q has a running task, close it first", c.Name)
	}
	if err := e.store.Delete(c.Name); err != nil {
		return err
	}
	log.Info("Profile deleted", "name", c.Name)
	return nil
}

type ListCmd struct{}

func (c *ListCmd) Run(e *appEnv) error {
	names := e.store.List()
	if len(names) == 0 {
		fmt.Println("No profiles")
		return nil
	}

	for _, name := range names {
		rec, ok := e.store.Get(name)
		if !ok {
			continue
		}
		proxy := session.DisplayProxy(session.NormalizeProxy(rec.Proxy))
		if proxy == "" {
			proxy = "no proxy"
		}
		twofa := ""
		if rec.TwoFASecret != "" {
			twofa = " 2fa"
		}
		lastUsed := "never"
		if rec.LastUsed != nil {
			lastUsed = rec.LastUsed.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-24s %-32s %-40s%s  last used %s\n", name, rec.Email, proxy, twofa, lastUsed)
	}
	return nil
}

type ImportCmd struct {
	File string `arg:"" help:"Excel workbook with email, password, proxy, 2fa columns" type:"existingfile"`
}

func (c *ImportCmd) Run(e *appEnv) error {
	success, skipped, messages := e.store.ImportFromExcel(c.File)
	for _, msg := range messages {
		fmt.Println(msg)
	}
	log.Info("Import finished", "imported", success, "skipped", skipped)
	return nil
}

type SampleCmd struct {
	File string `arg:"" optional:"" help:"Output path" default:"sample_profiles.xlsx"`
}

func (c *SampleCmd) Run(e *appEnv) error {
	if err := profile.WriteSampleExcel(c.File); err != nil {
		return err
	}
	log.Info("Sample workbook written", "file", c.File)
	return nil
}

type OpenCmd struct {
	Name string `arg:"" help:"Profile name"`
	URL  string `arg:"" optional:"" help:"Page to open" default:"https://www.mexc.com"`
}

func (c *OpenCmd) Run(e *appEnv) error {
	return e.runTask(c.Name, scenario.ManualOpen(c.URL))
}

type LoginCmd struct {
	Name string `arg:"" help:"Profile name"`
}

func (c *LoginCmd) Run(e *appEnv) error {
	rec, ok := e.store.Get(c.Name)
	if !ok {
		return fmt.Errorf("profile %q does not exist", c.Name)
	}
	if rec.Email == "" || rec.Password == "" {
		return fmt.Errorf("profile %q has no stored credentials", c.Name)
	}
	return e.runTask(c.Name, scenario.Login(scenario.Credentials{
		Email:       rec.Email,
		Password:    rec.Password,
		TwoFASecret: rec.TwoFASecret,
	}))
}

type CheckProxyCmd struct {
	Name string `arg:"" help:"Profile name"`
}

func (c *CheckProxyCmd) Run(e *appEnv) error {
	rec, ok := e.store.Get(c.Name)
	if !ok {
		return fmt.Errorf("profile %q does not exist", c.Name)
	}
	expected := session.ExtractIP(session.NormalizeProxy(rec.Proxy))
	if expected == "" {
		return fmt.Errorf("profile %q has no proxy with a literal IP to verify", c.Name)
	}
	return e.runTask(c.Name, scenario.CheckProxy(expected))
}

// tradeFlags are shared by the short and long commands.
type tradeFlags struct {
	Name    string `arg:"" help:"Profile name"`
	Token   string `arg:"" help:"Futures page of the token to trade"`
	Percent int    `help:"Share of balance to commit, 1-100" default:"10"`
	Order   string `help:"Order type: Market or Limit" default:"Market" enum:"Market,Limit"`
	Price   string `help:"Limit price, required for limit orders"`
}

func (f *tradeFlags) params() scenario.TradeParams {
	return scenario.TradeParams{
		TokenURL:        f.Token,
		PositionPercent: f.Percent,
		OrderType:       f.Order,
		LimitPrice:      f.Price,
	}
}

type ShortCmd struct{ tradeFlags }

func (c *ShortCmd) Run(e *appEnv) error {
	p := c.params()
	if err := p.Validate(); err != nil {
		return err
	}
	return e.runTask(c.Name, scenario.OpenShort(p))
}

type LongCmd struct{ tradeFlags }

func (c *LongCmd) Run(e *appEnv) error {
	p := c.params()
	if err := p.Validate(); err != nil {
		return err
	}
	return e.runTask(c.Name, scenario.OpenLong(p))
}

type InspectCmd struct {
	Name string `arg:"" help:"Profile name"`
	URL  string `arg:"" help:"Page to inspect"`
}

func (c *InspectCmd) Run(e *appEnv) error {
	return e.runTask(c.Name, scenario.Inspect(c.URL))
}

type CodeCmd struct {
	Name string `arg:"" help:"Profile name"`
}

func (c *CodeCmd) Run(e *appEnv) error {
	rec, ok := e.store.Get(c.Name)
	if !ok {
		return fmt.Errorf("profile %q does not exist", c.Name)
	}
	if strings.TrimSpace(rec.TwoFASecret) == "" {
		return fmt.Errorf("profile %q has no 2FA secret", c.Name)
	}
	code, err := totp.Code(rec.TwoFASecret)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%ds left)\n", code, totp.Remaining())
	return nil
}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("antik"),
		kong.Description("Browser-profile automation for exchange accounts."),
		kong.UsageOnError(),
	)

	if cli.Debug {
		log.SetLevel(log.DebugLevel)
	}

	var codec profile.Codec
	if cli.Passphrase != "" {
		c, err := profile.NewAESCodec(cli.Passphrase)
		if err != nil {
			log.Fatal("Failed to derive metadata cipher", "error", err)
		}
		codec = c
	}

	store, err := profile.Open(cli.Dir, codec)
	if err != nil {
		log.Fatal("Failed to open profile store", "error", err)
	}

	runner := task.NewRunner(store, browser.ChromeFactory{})
	runner.SetAttentionGrace(cli.AttentionGrace)

	reports, err := report.New(cli.Reports)
	if err != nil {
		log.Fatal("Failed to open reports directory", "error", err)
	}

	env := &appEnv{
		store:    store,
		runner:   runner,
		reports:  reports,
		headless: cli.Headless,
	}

	if err := ctx.Run(env); err != nil {
		log.Fatal("Command failed", "error", err)
	}
}
