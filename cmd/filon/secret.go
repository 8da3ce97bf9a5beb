package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lucky2025-star/filon/internal/config"
	"github.com/lucky2025-star/filon/internal/secrets"
)

const secretUsage = `usage:
  filon [-config config.toml] secret set <name>     (value read from stdin)
  filon [-config config.toml] secret list
  filon [-config config.toml] secret delete <name>

The store password is taken from secrets.password / FILON_SECRETS_PASSWORD.`

// runSecretCommand manages the encrypted credential store from the command
// line. It exits the process when done.
func runSecretCommand(cfg *config.Config, args []string) {
	if cfg.Secrets.Path == "" {
		fatalf("secrets.path is not configured")
	}
	if cfg.Secrets.Password == "" {
		fatalf("secrets password is not set (set FILON_SECRETS_PASSWORD)")
	}
	store, err := secrets.Open(cfg.Secrets.Path, cfg.Secrets.Password)
	if err != nil {
		fatalf("open secrets store: %v", err)
	}

	if len(args) == 0 {
		fatalf("%s", secretUsage)
	}
	switch args[0] {
	case "set":
		if len(args) != 2 {
			fatalf("%s", secretUsage)
		}
		fmt.Fprintf(os.Stderr, "value for %q: ", args[1])
		value, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fatalf("read value: %v", err)
		}
		value = strings.TrimRight(value, "\r\n")
		if value == "" {
			fatalf("value must not be empty")
		}
		if err := store.Set(args[1], value); err != nil {
			fatalf("set %q: %v", args[1], err)
		}
		fmt.Printf("stored %q in %s\n", args[1], cfg.Secrets.Path)

	case "list":
		names, err := store.Names()
		if err != nil {
			fatalf("list secrets: %v", err)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}

	case "delete":
		if len(args) != 2 {
			fatalf("%s", secretUsage)
		}
		if err := store.Delete(args[1]); err != nil {
			fatalf("delete %q: %v", args[1], err)
		}
		fmt.Printf("deleted %q from %s\n", args[1], cfg.Secrets.Path)

	default:
		fatalf("%s", secretUsage)
	}
	os.Exit(0)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
