package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/StoreStation/VibeShitCraft/pkg/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "connect4",
		Short: "Connect-Four network core",
	}
	root.AddCommand(newConnectCmd())
	return root
}

func newConnectCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server and play via a line-oriented stdin/stdout UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(v)
		},
	}

	flags := cmd.Flags()
	flags.String("server", "localhost:3000", "server host:port to connect to")
	_ = v.BindPFlag("server", flags.Lookup("server"))
	v.SetEnvPrefix("CONNECT4")
	v.AutomaticEnv()

	return cmd
}

func runConnect(v *viper.Viper) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("connect4: build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	address := v.GetString("server")
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return fmt.Errorf("connect4: dial %s: %w", address, err)
	}
	defer conn.Close()

	uiIn := make(chan client.UIRequest, 8)
	uiOut := make(chan client.UIEvent, 8)
	driver := client.NewDriver(conn, uiIn, uiOut, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	driverErr := make(chan error, 1)
	go func() { driverErr <- driver.Run(ctx) }()

	go printEvents(uiOut)
	go readCommands(uiIn)

	fmt.Printf("connected to %s\n", address)
	fmt.Println("commands: name <username> | play | drop <column>")

	if err := <-driverErr; err != nil && ctx.Err() == nil {
		return fmt.Errorf("connect4: driver: %w", err)
	}
	return nil
}

// readCommands parses stdin lines into UIRequest values until stdin
// closes, at which point it closes uiIn so the driver exits cleanly.
func readCommands(uiIn chan<- client.UIRequest) {
	defer close(uiIn)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "name":
			if len(fields) != 2 {
				fmt.Println("usage: name <username>")
				continue
			}
			uiIn <- client.RequestUsername{Username: fields[1]}
		case "play":
			uiIn <- client.SearchForGame{}
		case "drop":
			if len(fields) != 2 {
				fmt.Println("usage: drop <column>")
				continue
			}
			column, err := strconv.Atoi(fields[1])
			if err != nil || column < 0 || column > 255 {
				fmt.Println("column must be a small non-negative integer")
				continue
			}
			uiIn <- client.PlacePiece{Column: byte(column)}
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func printEvents(uiOut <-chan client.UIEvent) {
	for ev := range uiOut {
		switch e := ev.(type) {
		case client.UsernameResult:
			if e.Success {
				fmt.Printf("username %q claimed\n", e.Username)
			} else {
				fmt.Printf("username %q is taken\n", e.Username)
			}
		case client.TransferToGame:
			fmt.Println("matched, entering game")
		case client.NotifyOpponentJoin:
			fmt.Printf("opponent %q joined, you go first: %v\n", e.Username, e.IGoFirst)
		case client.PiecePlaced:
			who := "opponent"
			if e.Me {
				who = "you"
			}
			fmt.Printf("%s dropped a piece in column %d\n", who, e.Column)
		case client.ExitToLobby:
			fmt.Println("opponent disconnected, back to lobby")
		case client.WinGame:
			fmt.Println("you win!")
		case client.LoseGame:
			fmt.Println("you lose.")
		}
	}
}
