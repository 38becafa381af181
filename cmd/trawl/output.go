package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/oceanbright/trawl/internal/project"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func renderError(err error) string {
	return errorStyle.Render(fmt.Sprintf("Error: %v", err))
}

func renderSuccess(msg string) string {
	return successStyle.Render(msg)
}

// renderResults lays out per-pair command results grouped by deployment.
func renderResults(results project.Results) string {
	deployments := make([]string, 0, len(results))
	for name := range results {
		deployments = append(deployments, name)
	}
	sort.Strings(deployments)

	var lines []string
	for _, deployment := range deployments {
		lines = append(lines, headingStyle.Render(deployment))

		pipelines := make([]string, 0, len(results[deployment]))
		for name := range results[deployment] {
			pipelines = append(pipelines, name)
		}
		sort.Strings(pipelines)

		for _, pipeline := range pipelines {
			result := results[deployment][pipeline]
			if result == nil {
				lines = append(lines, detailStyle.Render(fmt.Sprintf("  %s: done", pipeline)))
				continue
			}
			lines = append(lines, detailStyle.Render(fmt.Sprintf("  %s: %v", pipeline, result)))
		}
	}

	return strings.Join(lines, "\n")
}
