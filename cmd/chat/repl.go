package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/garyellow/school-records-go/internal/app"
	"github.com/garyellow/school-records-go/internal/chat"
	"github.com/garyellow/school-records-go/internal/config"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
	"github.com/garyellow/school-records-go/internal/logger"
)

const banner = `Asistente escolar. Escribe tu consulta en español.
Comandos: /pdf <ruta> carga una constancia, /salir termina.`

// session is the part of chat.Engine the terminal loop drives.
type session interface {
	ProcessMessage(ctx context.Context, text string) chat.Response
	LoadPDF(path string) error
}

func runChat(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	log := logger.NewWithWriter(cfg.LogLevel, os.Stderr)

	core, err := app.NewCore(ctx, cfg, log, app.CoreOptions{})
	if err != nil {
		return err
	}
	engine := core.NewEngine(uuid.NewString())
	defer func() {
		engine.Close()
		if err := core.Close(); err != nil {
			log.WithError(err).Warn("shutdown completed with errors")
		}
	}()

	return repl(ctx, in, out, engine)
}

// repl reads one utterance per line until EOF or /salir.
func repl(ctx context.Context, in io.Reader, out io.Writer, s session) error {
	_, _ = fmt.Fprintln(out, banner)

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case isExit(line):
			_, _ = fmt.Fprintln(out, "¡Hasta luego!")
			return nil
		case strings.HasPrefix(line, "/pdf"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/pdf"))
			if path == "" {
				_, _ = fmt.Fprintln(out, "Uso: /pdf <ruta al archivo>")
				continue
			}
			if err := s.LoadPDF(path); err != nil {
				_, _ = fmt.Fprintln(out, domerrors.UserMessage(err))
				continue
			}
			_, _ = fmt.Fprintf(out, "PDF cargado: %s\n", path)
			continue
		}

		printResponse(out, s.ProcessMessage(ctx, line))
	}
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "/salir", "salir", "/exit", "exit", "/quit":
		return true
	}
	return false
}

func printResponse(out io.Writer, resp chat.Response) {
	_, _ = fmt.Fprintln(out, resp.Text)
	if resp.NeedsConfirmation && resp.ConfirmationPrompt != "" && !strings.Contains(resp.Text, resp.ConfirmationPrompt) {
		_, _ = fmt.Fprintln(out, resp.ConfirmationPrompt)
	}
}
