package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/cache"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/config"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/debug"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/engine"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/event"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/gitlab"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/model"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/notify"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/sched"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/ui"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/updater"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/version"
)

// saveDebounce coalesces bursts of tree mutations into one snapshot write.
const saveDebounce = 50 * time.Millisecond

func main() {
	configDir := flag.String("config", ".", "Directory holding settings.json and cache.json")
	noCache := flag.Bool("no-cache", false, "Ignore the cache snapshot and fetch from scratch")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Println("gpv " + version.Version)
		return
	}

	settings, settingsPath, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}
	debug.SetEnabled(settings.Debug)

	if settings.GroupName == "" {
		fmt.Fprintln(os.Stderr, "No group_name configured. Set it in settings.json.")
		os.Exit(1)
	}

	token := readToken()
	if token == "" {
		fmt.Fprintln(os.Stderr, "A GitLab token is required. Set GITLAB_TOKEN.")
		os.Exit(1)
	}

	gw, err := gitlab.NewClient(settings.GitLabAPIURL, token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building GitLab client: %v\n", err)
		os.Exit(1)
	}

	bus := event.NewBus()
	eng := engine.New(gw, bus, optionsFrom(settings))

	// Restore the last snapshot before the first frame so the user sees their
	// tree immediately, then decide whether it is stale enough to re-sync.
	cachePath := filepath.Join(*configDir, cache.DefaultPath)
	restored, stale := false, false
	if !*noCache {
		if tree, warnings, err := cache.Load(cachePath); err == nil {
			for _, w := range warnings {
				debug.Log("cache: %s", w)
			}
			eng.AdoptTree(tree)
			restored = true
			if age, err := cache.Age(cachePath); err == nil &&
				settings.CacheRefreshSeconds > 0 && age >= settings.CacheRefresh() {
				stale = true
			}
		} else if !os.IsNotExist(err) {
			debug.Log("cache: unusable snapshot, starting fresh: %v", err)
		}
	}

	theme := ui.DefaultTheme(lipgloss.DefaultRenderer(), settings.DarkMode)
	p := tea.NewProgram(ui.NewModel(eng, theme, settings.GroupName), tea.WithAltScreen())

	saver := sched.NewDebouncer(saveDebounce)
	save := func() {
		eng.WithTree(func(t *model.Tree) {
			if err := cache.Save(cachePath, t); err != nil {
				debug.Log("cache: save failed: %v", err)
			}
		})
	}
	bus.Subscribe(event.TreeChanged, func(any) {
		saver.Trigger(save)
		p.Send(ui.TreeChangedMsg{})
	})

	notifier := notify.New(bus)
	defer notifier.Close()

	sc := sched.New()
	var tickMu sync.Mutex
	tick := sc.Every(settings.RefreshRate(), func() { p.Send(ui.RefreshTickMsg{}) })

	bus.Subscribe(event.ConfigReloaded, func(payload any) {
		s, ok := payload.(config.Settings)
		if !ok {
			return
		}
		debug.SetEnabled(s.Debug)
		eng.UpdateOptions(optionsFrom(s))
		tickMu.Lock()
		sc.Stop(tick)
		tick = sc.Every(s.RefreshRate(), func() { p.Send(ui.RefreshTickMsg{}) })
		tickMu.Unlock()
		p.Send(ui.StatusMsg{Text: "settings reloaded"})
	})

	if settingsPath != "" {
		if w, err := config.Watch(settingsPath, bus); err == nil {
			defer w.Close()
		} else {
			debug.Log("config: watch unavailable: %v", err)
		}
	}

	go func() {
		ctx := context.Background()
		switch {
		case !restored:
			if err := eng.Bootstrap(ctx); err != nil {
				p.Send(ui.StatusMsg{Text: "sync failed: " + err.Error()})
			}
		case stale:
			debug.Log("cache: snapshot older than cache_refresh_seconds, re-syncing")
			if err := eng.RefreshAll(ctx); err != nil {
				p.Send(ui.StatusMsg{Text: "refresh failed: " + err.Error()})
			}
		}
	}()

	go func() {
		if tag, url, err := updater.CheckForUpdates(); err == nil && tag != "" {
			p.Send(ui.StatusMsg{Text: fmt.Sprintf("update %s available: %s", tag, url)})
		}
	}()

	_, runErr := p.Run()

	sc.StopAll()
	saver.Cancel()
	save()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running pipeline viewer: %v\n", runErr)
		os.Exit(1)
	}
}

func optionsFrom(s config.Settings) engine.Options {
	return engine.Options{
		GroupName: s.GroupName,
		Ignored:   s.IgnoredGroupSet(),
		Branches:  s.Branches,
	}
}

// readToken takes the token from the environment, falling back to a one-line
// prompt so the token never has to live in a settings file.
func readToken() string {
	if token := os.Getenv("GITLAB_TOKEN"); token != "" {
		return token
	}
	fmt.Fprint(os.Stderr, "GitLab private token: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
