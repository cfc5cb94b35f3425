package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"justicia-client/internal/chat"
	"justicia-client/internal/client"
	"justicia-client/pkg/api"
)

func newChatCommand() *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Conversación interactiva con el asistente",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), fresh)
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "start a new conversation instead of resuming")
	return cmd
}

func runChat(ctx context.Context, fresh bool) error {
	conversation, err := chat.NewStore(store, cfg.UserId)
	if err != nil {
		return err
	}
	if fresh {
		conversation.StartNew()
	}

	cleaner := chat.NewCleaner(store)
	defer cleaner.Stop()
	if _, err := cleaner.SweepIfDue(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("JusticIA — escriba su consulta (/nueva, /limpiar, /salir):")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/salir":
			return cleaner.OnChatExit()
		case "/nueva":
			conversation.StartNew()
			fmt.Println("Nueva conversación iniciada.")
			continue
		case "/limpiar":
			if err := conversation.ClearCurrent(); err != nil {
				return err
			}
			fmt.Println("Conversación limpiada.")
			continue
		}

		answer, err := ask(ctx, conversation, line)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintln(os.Stderr, userMessage(err))
			continue
		}
		if err := conversation.AddExchange(line, answer); err != nil {
			return err
		}
	}

	// Interrupted or stdin closed: treat like leaving the chat view.
	return cleaner.OnChatExit()
}

// ask streams one answer, printing tokens as they arrive, and returns the
// accumulated response text.
func ask(ctx context.Context, conversation *chat.Store, message string) (string, error) {
	stream, err := backend.StreamChat(ctx, api.ChatStreamRequest{
		Message:        message,
		Context:        conversation.FormattedContext(),
		ConversationId: conversation.ConversationId(),
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var answer strings.Builder
	var sources []api.StreamSource

	err = client.ReadEvents(ctx, stream.Body(), func(event api.StreamEvent) error {
		switch event.Type {
		case api.StreamEventToken:
			answer.WriteString(event.Content)
			fmt.Print(event.Content)
		case api.StreamEventSources:
			sources = event.Sources
		case api.StreamEventError:
			return client.NewError(client.KindServer, 0, event.Error, nil)
		}
		return nil
	})
	fmt.Println()
	if err != nil {
		return "", err
	}

	for _, source := range sources {
		fmt.Printf("  fuente: %s — %s (%.2f)\n", source.CaseNumber, source.Title, source.Score)
	}
	return answer.String(), nil
}
