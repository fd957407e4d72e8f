package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mcpherd/mcpherd/pkg/client"
)

func newClient(g *GlobalFlags) *client.Client {
	return client.New(client.Config{BaseURL: g.APIUrl, Timeout: g.APITimeout})
}

func runStart(g *GlobalFlags, f *ServerFlags) error {
	st, err := newClient(g).Start(context.Background(), f.ID)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func runStop(g *GlobalFlags, f *ServerFlags) error {
	st, err := newClient(g).Stop(context.Background(), f.ID)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func runKill(g *GlobalFlags, f *ServerFlags) error {
	st, err := newClient(g).Kill(context.Background(), f.ID)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func runStatus(g *GlobalFlags, f *ServerFlags) error {
	st, err := newClient(g).Status(context.Background(), f.ID)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func runOutput(g *GlobalFlags, f *ServerFlags) error {
	lines, err := newClient(g).Output(context.Background(), f.ID)
	if err != nil {
		return err
	}
	for _, l := range lines {
		prefix := " "
		if l.Source == "stderr" {
			prefix = "!"
		}
		fmt.Printf("%s %s\n", prefix, l.Text)
	}
	return nil
}

func runAdd(g *GlobalFlags, f *AddFlags) error {
	env, err := parseEnv(f.Env)
	if err != nil {
		return err
	}
	cfg := map[string]any{
		"command": f.Command,
		"args":    f.Args,
	}
	if len(env) > 0 {
		cfg["env"] = env
	}
	if f.Port != 0 {
		cfg["port"] = f.Port
	}
	if err := newClient(g).Add(context.Background(), f.ID, cfg); err != nil {
		return err
	}
	fmt.Printf("added %q\n", f.ID)
	return nil
}

func runRemove(g *GlobalFlags, f *ServerFlags) error {
	if err := newClient(g).Remove(context.Background(), f.ID); err != nil {
		return err
	}
	fmt.Printf("removed %q\n", f.ID)
	return nil
}

func runList(g *GlobalFlags) error {
	entries, err := newClient(g).List(context.Background())
	if err != nil {
		return err
	}
	printJSON(entries)
	return nil
}

func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env value %q, expected KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
