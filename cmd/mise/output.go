package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/GabrielGBraga/mise/browse"
	"github.com/GabrielGBraga/mise/models"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printRecipes(items []models.Recipe) {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, []string{
			r.ID.Hex(),
			r.Title,
			r.Difficulty,
			strconv.Itoa(r.PrepTime) + " min",
			strconv.Itoa(r.Servings),
			formatTime(r.CreatedAt),
		})
	}
	printTable([]string{"ID", "TITLE", "DIFFICULTY", "PREP", "SERVES", "CREATED"}, rows)
}

func printDetail(b browse.Backend, d models.RecipeDetail) {
	r := d.Recipe
	rows := [][2]string{
		{"title", r.Title},
		{"difficulty", r.Difficulty},
		{"prep time", strconv.Itoa(r.PrepTime) + " min"},
		{"servings", strconv.Itoa(r.Servings)},
	}
	if r.Description != "" {
		rows = append(rows, [2]string{"description", r.Description})
	}
	if cover := browse.CoverURL(b, r); cover != "" {
		rows = append(rows, [2]string{"cover", cover})
	}
	if r.VideoURL != "" {
		rows = append(rows, [2]string{"video", r.VideoURL})
	}
	printKV(rows)

	fmt.Println("\nIngredients")
	for _, line := range d.Ingredients {
		fmt.Printf("  - %s %s %s\n", strconv.FormatFloat(line.Quantity, 'f', -1, 64), line.Unit, line.ElementName)
	}
	fmt.Println("\nSteps")
	for _, step := range d.Instructions {
		fmt.Printf("  %d. %s\n", step.StepNumber, step.Description)
	}
}

func printElements(items []models.Element) {
	rows := make([][]string, 0, len(items))
	for _, el := range items {
		rows = append(rows, []string{el.ID.Hex(), el.Name, strings.Join(el.Units, ", ")})
	}
	printTable([]string{"ID", "NAME", "UNITS"}, rows)
}
