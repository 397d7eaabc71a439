package console

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// getCompletions возвращает возможные варианты автодополнения
func getCompletions(root *cobra.Command, input string) []string {
	if strings.TrimSpace(input) == "" {
		return getCobraCommands(root)
	}

	parts := strings.Fields(input)
	// после пробела дополняем следующее слово
	if strings.HasSuffix(input, " ") {
		parts = append(parts, "")
	}

	if len(parts) == 1 {
		return getMatchingCommands(root, parts[0])
	}

	cmd, lastPart := findCobraCommand(root, parts)
	if strings.HasPrefix(lastPart, "-") {
		return getMatchingFlags(cmd, lastPart)
	}
	if len(cmd.Commands()) > 0 {
		return getMatchingCommands(cmd, lastPart)
	}
	return nil
}

// getCobraCommands возвращает все видимые команды верхнего уровня
func getCobraCommands(root *cobra.Command) []string {
	return getMatchingCommands(root, "")
}

func getMatchingCommands(parent *cobra.Command, prefix string) []string {
	var matches []string
	for _, cmd := range parent.Commands() {
		if !cmd.Hidden && strings.HasPrefix(cmd.Name(), prefix) {
			matches = append(matches, cmd.Name())
		}
	}
	return matches
}

func getMatchingFlags(cmd *cobra.Command, prefix string) []string {
	var matches []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Shorthand != "" {
			if short := "-" + flag.Shorthand; strings.HasPrefix(short, prefix) {
				matches = append(matches, short)
			}
		}
		if full := "--" + flag.Name; strings.HasPrefix(full, prefix) {
			matches = append(matches, full)
		}
	})
	return matches
}

// findCobraCommand спускается по подкомандам, пока они совпадают.
// Последнее слово всегда считается незавершённым.
func findCobraCommand(root *cobra.Command, parts []string) (*cobra.Command, string) {
	cmd := root
	for _, part := range parts[:len(parts)-1] {
		if strings.HasPrefix(part, "-") {
			break
		}
		next := childByName(cmd, part)
		if next == nil {
			break
		}
		cmd = next
	}
	return cmd, parts[len(parts)-1]
}

func childByName(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

// completeCommand заменяет последнее слово input на completion
func completeCommand(input, completion string) string {
	if input == "" || strings.HasSuffix(input, " ") {
		return input + completion
	}
	idx := strings.LastIndex(input, " ")
	return input[:idx+1] + completion
}

func commonPrefix(words []string) string {
	if len(words) == 0 {
		return ""
	}
	prefix := words[0]
	for _, w := range words[1:] {
		for !strings.HasPrefix(w, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}
