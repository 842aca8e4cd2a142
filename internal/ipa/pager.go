package ipa

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/term"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// diagnostics returns the indexes of compiler error and warning lines.
// Both cargo ("error[E0425]: ...") and swift ("file.swift:3:1: error: ...")
// spellings are recognised.
func diagnostics(lines []string) (errs, warns []int) {
	for i, line := range lines {
		plain := strings.TrimSpace(ansiEscape.ReplaceAllString(line, ""))
		switch {
		case strings.HasPrefix(plain, "error"), strings.Contains(plain, ": error:"):
			errs = append(errs, i)
		case strings.HasPrefix(plain, "warning"), strings.Contains(plain, ": warning:"):
			warns = append(warns, i)
		}
	}
	return errs, warns
}

// nextIndex returns the first entry of idx after cur, wrapping around.
func nextIndex(idx []int, cur int) (int, bool) {
	if len(idx) == 0 {
		return 0, false
	}
	for _, i := range idx {
		if i > cur {
			return i, true
		}
	}
	return idx[0], true
}

// RunPager shows a build log in a scrollable view. Logs that fit on the
// screen, or any log when stdout is not a terminal, are printed instead.
// In the view 'e' jumps to the next compiler error and 'w' to the next
// warning.
func RunPager(title string, lines []string) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		printLines(lines)
		return nil
	}

	// Border takes two lines.
	_, height, err := term.GetSize(fd)
	if err == nil && len(lines) <= height-2 {
		printLines(lines)
		return nil
	}

	errs, warns := diagnostics(lines)
	app := tview.NewApplication()

	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	textView.SetBorder(true).
		SetTitle(fmt.Sprintf(" %s (%d errors, %d warnings) ", title, len(errs), len(warns)))

	// cargo output carries ANSI colours
	fmt.Fprint(tview.ANSIWriter(textView), strings.Join(lines, "\n"))

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]↑/↓ PgUp/PgDn g/G scroll, e next error, w next warning, q quit[white]")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 1, true).
		AddItem(footer, 1, 0, false)

	jump := func(idx []int) {
		row, _ := textView.GetScrollOffset()
		if target, ok := nextIndex(idx, row); ok {
			textView.ScrollTo(target, 0)
		}
	}

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyCtrlQ:
			app.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q':
				app.Stop()
			case 'e':
				jump(errs)
			case 'w':
				jump(warns)
			case 'g':
				textView.ScrollToBeginning()
			case 'G':
				textView.ScrollToEnd()
			default:
				return event
			}
			return nil
		}
		return event
	})

	if err := app.SetRoot(flex, true).SetFocus(textView).Run(); err != nil {
		return fmt.Errorf("pager execution failed: %w", err)
	}
	return nil
}

func printLines(lines []string) {
	for _, line := range lines {
		fmt.Println(line)
	}
}

// isTerminal reports whether stdout is attached to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
