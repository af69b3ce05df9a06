package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Console reads answers from the user. It answers plugin dialogs and the
// item choice of the navigation loop.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console reading lines from in and prompting on out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// readLine prompts and reads one trimmed line. io.EOF is returned once
// input is exhausted and nothing was typed.
func (c *Console) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		fmt.Fprintln(c.out)
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Input asks for text; an empty answer keeps the default.
func (c *Console) Input(heading, defaultValue string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prompt := heading + ": "
	if defaultValue != "" {
		prompt = fmt.Sprintf("%s [%s]: ", heading, defaultValue)
	}
	line, err := c.readLine(prompt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return defaultValue, nil
		}
		return "", err
	}
	if line == "" {
		return defaultValue, nil
	}
	return line, nil
}

// Select lists options and asks for an index. An empty answer cancels
// with -1.
func (c *Console) Select(heading string, options []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, heading)
	for i, opt := range options {
		fmt.Fprintf(c.out, "%d. %s\n", i, opt)
	}
	for {
		line, err := c.readLine("Choose an option: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return -1, nil
			}
			return -1, err
		}
		if line == "" {
			return -1, nil
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 0 || n >= len(options) {
			fmt.Fprintf(c.out, "Enter a number from 0 to %d, or nothing to cancel.\n", len(options)-1)
			continue
		}
		return n, nil
	}
}

// YesNo asks a yes/no question; anything but y or yes is no.
func (c *Console) YesNo(heading, message string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.readLine(fmt.Sprintf("%s: %s [y/N]: ", heading, message))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Choose asks for an item index below n. ok is false when the user
// enters nothing or input ends.
func (c *Console) Choose(n int) (index int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		line, err := c.readLine("Choose an item: ")
		if err != nil || line == "" {
			return 0, false
		}
		i, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(c.out, "Enter a number, or nothing to exit.")
			continue
		}
		if i < 0 || i >= n {
			fmt.Fprintln(c.out, "Choice is out of range, choose from the list above.")
			continue
		}
		return i, true
	}
}

// Pause waits for Enter. It reports false when input has ended.
func (c *Console) Pause(prompt string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.readLine(prompt)
	return err == nil
}
