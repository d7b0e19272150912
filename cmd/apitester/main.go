package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dev-hans-programmer/postman-clone/internal/collection"
	"github.com/dev-hans-programmer/postman-clone/internal/config"
	"github.com/dev-hans-programmer/postman-clone/internal/environment"
	"github.com/dev-hans-programmer/postman-clone/internal/export"
	"github.com/dev-hans-programmer/postman-clone/internal/history"
	"github.com/dev-hans-programmer/postman-clone/internal/httpclient"
	"github.com/dev-hans-programmer/postman-clone/internal/model"
	"github.com/dev-hans-programmer/postman-clone/internal/telemetry"
	"github.com/dev-hans-programmer/postman-clone/internal/vars"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// multiFlag collects repeated "key: value" or "key=value" pairs.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ", ") }

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func main() {
	var (
		method      string
		headers     multiFlag
		params      multiFlag
		body        string
		bodyFile    string
		bodyType    string
		authType    string
		authToken   string
		authUser    string
		authPass    string
		apiKeyName  string
		apiKeyValue string
		apiKeyIn    string
		envName     string
		timeout     time.Duration
		insecure    bool
		proxyURL    string
		noHistory   bool
		exportPath  string
		exportKind  string
		importPath  string
		importMode  string
		showVersion bool
	)

	flag.StringVar(&method, "method", "GET", "HTTP method")
	flag.Var(&headers, "H", "Header as 'Name: value' (repeatable)")
	flag.Var(&params, "param", "Query parameter as 'key=value' (repeatable)")
	flag.StringVar(&body, "body", "", "Request body")
	flag.StringVar(&bodyFile, "body-file", "", "Read request body from file")
	flag.StringVar(&bodyType, "body-type", "json", "Body type: json, form-data, x-www-form-urlencoded, raw")
	flag.StringVar(&authType, "auth", "none", "Auth type: none, bearer, basic, api_key")
	flag.StringVar(&authToken, "auth-token", "", "Bearer token")
	flag.StringVar(&authUser, "auth-user", "", "Basic auth username")
	flag.StringVar(&authPass, "auth-pass", "", "Basic auth password")
	flag.StringVar(&apiKeyName, "api-key-name", "", "API key parameter name")
	flag.StringVar(&apiKeyValue, "api-key-value", "", "API key value")
	flag.StringVar(&apiKeyIn, "api-key-in", "header", "API key location: header or query")
	flag.StringVar(&envName, "env", "", "Environment name for {{var}} substitution")
	flag.DurationVar(&timeout, "timeout", 0, "Request timeout (overrides settings)")
	flag.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	flag.StringVar(&proxyURL, "proxy", "", "HTTP proxy URL")
	flag.BoolVar(&noHistory, "no-history", false, "Do not record the request in history")
	flag.StringVar(&exportPath, "export", "", "Export data to file and exit")
	flag.StringVar(&exportKind, "export-kind", "all", "Export scope: all, history, environments, collections")
	flag.StringVar(&importPath, "import", "", "Import data from file and exit")
	flag.StringVar(&importMode, "import-mode", "merge", "Import mode: merge or replace")
	flag.BoolVar(&showVersion, "version", false, "Show apitester version")
	flag.Parse()

	if showVersion {
		fmt.Printf("apitester %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	settings, _, err := config.LoadSettings()
	if err != nil {
		log.Printf("settings load error: %v", err)
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, telemetry.ConfigFromEnv(os.Getenv))
	if err != nil {
		log.Printf("telemetry setup error: %v", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("telemetry shutdown error: %v", err)
			}
		}()
	}

	historyStore, closeHistory := openHistory(settings)
	defer closeHistory()

	envStore := environment.NewStore(config.EnvironmentsPath())
	if err := envStore.Load(); err != nil {
		log.Printf("environments load error: %v", err)
	}

	if exportPath != "" || importPath != "" {
		runTransfer(historyStore, envStore, exportPath, exportKind, importPath, importMode)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: apitester [flags] <url>")
		flag.Usage()
		os.Exit(2)
	}

	req := buildRequest(flag.Arg(0), method, headers, params, body, bodyFile, bodyType,
		authType, authToken, authUser, authPass, apiKeyName, apiKeyValue, apiKeyIn)
	if ok, msg := req.Validate(); !ok {
		log.Fatalf("invalid request: %s", msg)
	}

	resolver := buildResolver(envStore, envName)
	opts := buildOptions(settings, timeout, insecure, proxyURL)

	resp := httpclient.NewClient().Execute(ctx, req, resolver, opts)

	if !noHistory {
		if err := historyStore.Append(req, resp); err != nil {
			log.Printf("history append error: %v", err)
		}
	}

	printResponse(resp)
	if resp.Error != "" {
		os.Exit(1)
	}
}

func openHistory(settings config.Settings) (history.Recorder, func()) {
	if settings.History.Backend == "sqlite" {
		store, err := history.NewSQLStore(config.HistoryDBPath(), settings.History.MaxEntries)
		if err == nil {
			return store, func() {
				if err := store.Close(); err != nil {
					log.Printf("history close error: %v", err)
				}
			}
		}
		log.Printf("sqlite history unavailable, falling back to json: %v", err)
	}

	store := history.NewStore(config.HistoryPath(), settings.History.MaxEntries)
	if err := store.Load(); err != nil {
		log.Printf("history load error: %v", err)
	}
	return store, func() {}
}

func buildRequest(url, method string, headers, params multiFlag, body, bodyFile, bodyType,
	authType, authToken, authUser, authPass, apiKeyName, apiKeyValue, apiKeyIn string) *model.Request {
	req := model.NewRequest()
	req.URL = url
	req.Method = strings.ToUpper(method)
	req.BodyType = model.BodyType(bodyType)
	req.AuthType = model.AuthType(authType)

	for _, header := range headers {
		name, value, ok := splitPair(header, ":")
		if !ok {
			log.Fatalf("invalid header %q, expected 'Name: value'", header)
		}
		req.Headers[name] = value
	}
	for _, param := range params {
		key, value, ok := splitPair(param, "=")
		if !ok {
			log.Fatalf("invalid parameter %q, expected 'key=value'", param)
		}
		req.Params[key] = value
	}

	req.Body = body
	if bodyFile != "" {
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			log.Fatalf("read body file: %v", err)
		}
		req.Body = string(data)
	}

	switch req.AuthType {
	case model.AuthBearer:
		req.AuthData["token"] = authToken
	case model.AuthBasic:
		req.AuthData["username"] = authUser
		req.AuthData["password"] = authPass
	case model.AuthAPIKey:
		req.AuthData["key"] = apiKeyName
		req.AuthData["value"] = apiKeyValue
		req.AuthData["location"] = apiKeyIn
	}

	return req
}

func splitPair(input, sep string) (string, string, bool) {
	parts := strings.SplitN(input, sep, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(parts[1]), true
}

func buildResolver(envStore *environment.Store, envName string) *vars.Resolver {
	env := envStore.Active()
	if envName != "" {
		env = envStore.Environment(envName)
		if env == nil {
			available := make([]string, 0)
			for _, candidate := range envStore.Environments() {
				available = append(available, candidate.Name)
			}
			sort.Strings(available)
			log.Fatalf("environment %q not found (have: %s)", envName, strings.Join(available, ", "))
		}
	}

	providers := make([]vars.Provider, 0, 2)
	if env != nil {
		providers = append(providers, env.Provider())
	}
	providers = append(providers, vars.EnvProvider{})
	return vars.NewResolver(providers...)
}

func buildOptions(settings config.Settings, timeout time.Duration, insecure bool, proxyURL string) httpclient.Options {
	opts := httpclient.DefaultOptions()
	opts.Timeout = time.Duration(settings.Network.TimeoutSeconds * float64(time.Second))
	if settings.Network.VerifySSL != nil {
		opts.VerifySSL = *settings.Network.VerifySSL
	}
	opts.MaxRedirects = settings.Network.MaxRedirects
	opts.ProxyURL = settings.Network.ProxyURL

	if timeout > 0 {
		opts.Timeout = timeout
	}
	if insecure {
		opts.VerifySSL = false
	}
	if proxyURL != "" {
		opts.ProxyURL = proxyURL
	}
	return opts
}

func loadCollections() *collection.Store {
	store := collection.NewStore(config.CollectionsPath())
	if err := store.Load(); err != nil {
		log.Printf("collections load error: %v", err)
	}
	return store
}

func runTransfer(historyStore history.Recorder, envStore *environment.Store,
	exportPath, exportKind, importPath, importMode string) {
	manager := &export.Manager{
		Collections:  loadCollections(),
		Environments: envStore,
		History:      historyStore,
	}

	if importPath != "" {
		mode := export.ModeMerge
		if importMode == "replace" {
			mode = export.ModeReplace
		}
		if err := manager.Import(importPath, mode); err != nil {
			log.Fatalf("import: %v", err)
		}
		fmt.Printf("imported %s\n", importPath)
	}

	if exportPath != "" {
		if err := manager.Export(exportPath, export.Kind(exportKind)); err != nil {
			log.Fatalf("export: %v", err)
		}
		fmt.Printf("exported %s\n", exportPath)
	}
}

func printResponse(resp *model.Response) {
	if resp.Error != "" {
		fmt.Fprintf(os.Stderr, "error: %s (%s)\n", resp.Error, resp.FormattedTime())
		return
	}

	fmt.Printf("%d %s  %s  %s\n", resp.StatusCode, resp.StatusText, resp.FormattedTime(), resp.FormattedSize())

	names := make([]string, 0, len(resp.Headers))
	for name := range resp.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s: %s\n", name, resp.Headers[name])
	}

	if resp.Body != "" {
		fmt.Println()
		fmt.Println(resp.FormattedBody())
	}
}
