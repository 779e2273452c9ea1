package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rajit-b/agentic-app/pkg/agent"
)

var errCancelled = errors.New("cancelled")

type prompter struct {
	out   io.Writer
	lines chan string
	errs  chan error
}

// newPrompter reads lines from in on a background goroutine so a prompt can
// be abandoned when the context is cancelled.
func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{out: out, lines: make(chan string), errs: make(chan error, 1)}
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		p.errs <- err
	}()
	return p
}

// ask prints label and waits for one line. EOF and cancellation both map to
// errCancelled.
func (p *prompter) ask(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.out, label)
	select {
	case <-ctx.Done():
		return "", errCancelled
	case line := <-p.lines:
		return strings.TrimSpace(line), nil
	case err := <-p.errs:
		if errors.Is(err, io.EOF) {
			return "", errCancelled
		}
		return "", fmt.Errorf("read input: %w", err)
	}
}

func promptRequest(ctx context.Context, p *prompter) (agent.Request, error) {
	var req agent.Request
	var err error
	if req.Location, err = p.ask(ctx, "Enter your current city & country: "); err != nil {
		return req, err
	}
	if req.Mood, err = p.ask(ctx, "Enter your mood: "); err != nil {
		return req, err
	}
	if req.Activity, err = p.ask(ctx, "Enter your activity: "); err != nil {
		return req, err
	}
	tags, err := p.ask(ctx, "Enter any tags (comma or space separated, optional): ")
	if err != nil {
		return req, err
	}
	req.Tags = agent.ParseTags(tags)
	return req, nil
}
