package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/term"
)

const menuText = `
--- Cliente de Consola: Gestor de Tareas ---
1. Registrar usuario
2. Iniciar sesión
3. Ver sistema (/tareas)
4. Salir
`

// Console is the interactive menu around a Client.
type Console struct {
	api *Client
	in  *bufio.Reader
	out io.Writer

	// terminal is set when passwords can be read without echo.
	terminal *os.File
}

// NewConsole creates a Console reading choices from in and writing to out.
func NewConsole(api *Client, in io.Reader, out io.Writer) *Console {
	c := &Console{api: api, in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.terminal = f
	}
	return c
}

// Run shows the menu until the user picks "4" or input ends. Request
// failures are printed and the menu continues.
func (c *Console) Run(ctx context.Context) error {
	for {
		fmt.Fprint(c.out, menuText)
		choice, err := c.prompt("Elige una opción: ")
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = c.credentialsCall(ctx, "Nombre de usuario: ", c.api.Register)
		case "2":
			err = c.credentialsCall(ctx, "Usuario: ", c.api.Login)
		case "3":
			err = c.showTasks(ctx)
		case "4":
			return nil
		default:
			fmt.Fprintln(c.out, "Opción inválida")
			continue
		}

		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

type credentialsFunc func(ctx context.Context, username, password string) (*Response, error)

func (c *Console) credentialsCall(ctx context.Context, userPrompt string, call credentialsFunc) error {
	username, err := c.prompt(userPrompt)
	if err != nil {
		return err
	}
	password, err := c.promptPassword("Contraseña: ")
	if err != nil {
		return err
	}

	resp, err := call(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Status: %d\n", resp.StatusCode)
	fmt.Fprintln(c.out, strings.TrimSpace(resp.Body))
	return nil
}

func (c *Console) showTasks(ctx context.Context) error {
	resp, err := c.api.Tasks(ctx)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintln(c.out, "Error al cargar la página:", resp.StatusCode)
		return nil
	}
	fmt.Fprintln(c.out, "HTML recibido:")
	fmt.Fprintln(c.out, resp.Body)
	return nil
}

func (c *Console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Console) promptPassword(label string) (string, error) {
	if c.terminal == nil {
		return c.prompt(label)
	}
	fmt.Fprint(c.out, label)
	pw, err := term.ReadPassword(int(c.terminal.Fd()))
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
