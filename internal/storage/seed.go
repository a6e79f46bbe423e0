package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kassenbuch/internal/core"
	"kassenbuch/internal/ledger"
)

var seedCategories = []string{
	"Büro", "Reise", "Marketing", "Software", "Personal",
	"Recht & Beratung", "Versicherung", "Telekommunikation",
	"Miete", "Sonstiges",
}

var seedProjects = []string{"DeFi", "Könyvelés", "Consulting", "SaaS"}

type seedEntry struct {
	date     core.Date
	desc     string
	amount   string
	typ      core.EntryType
	category string
	project  string
	notes    string
}

var seedEntries = []seedEntry{
	{core.NewDate(2024, 1, 5), "Webentwicklung Projekt Alpha", "4500", core.Income, "", "Consulting", "Rechnung #2024-001"},
	{core.NewDate(2024, 1, 10), "Büromaterial Amazon", "89.90", core.Expense, "Büro", "", ""},
	{core.NewDate(2024, 1, 15), "Hetzner Server", "49.90", core.Expense, "Software", "SaaS", "Monatlich"},
	{core.NewDate(2024, 1, 20), "DeFi Smart Contract Audit", "3200", core.Income, "", "DeFi", ""},
	{core.NewDate(2024, 1, 25), "Steuerberater Honorar Q4/2023", "850", core.Expense, "Recht & Beratung", "Könyvelés", ""},
	{core.NewDate(2024, 2, 1), "Google Ads Kampagne", "320", core.Expense, "Marketing", "SaaS", ""},
	{core.NewDate(2024, 2, 5), "Consulting Retainer Feb", "6000", core.Income, "", "Consulting", ""},
	{core.NewDate(2024, 2, 10), "Büromiete Feb", "750", core.Expense, "Miete", "", ""},
	{core.NewDate(2024, 2, 15), "Zugticket Wien-Graz", "45.60", core.Expense, "Reise", "Consulting", ""},
	{core.NewDate(2024, 2, 20), "GitHub Enterprise", "21", core.Expense, "Software", "", "Jährlich anteilig"},
	{core.NewDate(2024, 3, 1), "DeFi Protocol Integration", "8500", core.Income, "", "DeFi", "Milestone 1"},
	{core.NewDate(2024, 3, 5), "Rechtsanwalt Vertragsprüfung", "480", core.Expense, "Recht & Beratung", "", ""},
	{core.NewDate(2024, 3, 15), "A1 Telekommunikation", "39.90", core.Expense, "Telekommunikation", "", ""},
	{core.NewDate(2024, 3, 20), "SVS Quartalsbeitrag", "1800", core.Expense, "Versicherung", "", "Q1/2024"},
	{core.NewDate(2024, 4, 1), "SaaS Subscription Revenue", "2400", core.Income, "", "SaaS", "März Auszahlung"},
	{core.NewDate(2024, 4, 5), "Flug Wien-Berlin Konferenz", "189", core.Expense, "Reise", "", ""},
	{core.NewDate(2024, 5, 20), "DeFi Yield Farming Beratung", "1500", core.Income, "", "DeFi", ""},
	{core.NewDate(2024, 6, 15), "AWS Cloud Services", "124.50", core.Expense, "Software", "SaaS", ""},
	{core.NewDate(2024, 7, 5), "Notebook Lenovo ThinkPad", "1299", core.Expense, "Büro", "", "Abschreibung 3J"},
	{core.NewDate(2024, 8, 1), "Sommerurlaub - kein Einnahme", "0", core.Income, "", "", "Urlaubsmonat"},
	{core.NewDate(2024, 8, 15), "Sonstige Ausgabe Parkgebühr", "35", core.Expense, "Sonstiges", "", ""},
	{core.NewDate(2024, 10, 20), "Personal - Freelancer", "2000", core.Expense, "Personal", "SaaS", ""},
	{core.NewDate(2024, 12, 10), "Steuerberater Jahresabschluss", "1200", core.Expense, "Recht & Beratung", "Könyvelés", ""},
	{core.NewDate(2024, 12, 28), "SaaS Subscription Revenue", "3800", core.Income, "", "SaaS", "Nov+Dez"},
}

// Seed populates the store with the sample bookkeeping data set. It is a
// no-op when entries already exist.
func (r *SQLiteRepository) Seed(ctx context.Context) error {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return fmt.Errorf("count entries: %w", err)
	}
	if count > 0 {
		slog.InfoContext(ctx, "Store already seeded, skipping", "entries", count)
		return nil
	}

	for _, name := range seedCategories {
		if _, err := r.CreateCategory(ctx, name); err != nil && !errors.Is(err, ledger.ErrConflict) {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	for _, name := range seedProjects {
		if _, err := r.CreateProject(ctx, name); err != nil && !errors.Is(err, ledger.ErrConflict) {
			return fmt.Errorf("seed project %q: %w", name, err)
		}
	}

	allCategories, err := r.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	categories := make(map[string]int64, len(allCategories))
	for _, c := range allCategories {
		categories[c.Name] = c.ID
	}

	allProjects, err := r.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	projects := make(map[string]int64, len(allProjects))
	for _, p := range allProjects {
		projects[p.Name] = p.ID
	}

	for _, row := range seedEntries {
		amount, err := core.ParseAmount(row.amount)
		if err != nil {
			return fmt.Errorf("seed amount %q: %w", row.amount, err)
		}
		entry := core.Entry{
			Date:        row.date,
			Description: row.desc,
			Amount:      amount,
			Type:        row.typ,
		}
		if row.category != "" {
			if id, ok := categories[row.category]; ok {
				entry.CategoryID = &id
			}
		}
		if row.notes != "" {
			notes := row.notes
			entry.Notes = &notes
		}
		var projectIDs []int64
		if row.project != "" {
			if id, ok := projects[row.project]; ok {
				projectIDs = append(projectIDs, id)
			}
		}
		if _, err := r.CreateEntry(ctx, entry, projectIDs); err != nil {
			return fmt.Errorf("seed entry %q: %w", row.desc, err)
		}
	}

	slog.InfoContext(ctx, "Seeded sample data",
		"entries", len(seedEntries),
		"categories", len(seedCategories),
		"projects", len(seedProjects))
	return nil
}
