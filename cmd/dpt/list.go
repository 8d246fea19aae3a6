package main

import "fmt"

// cmdList implements "list": enumerate every package record advertised by
// the configured repositories.
func cmdList(dptDir string) (int, error) {
	records, err := fetchIndex()
	if err != nil {
		return 69, fmt.Errorf("fetching repository index: %w", err)
	}

	for _, rec := range records {
		fmt.Printf("%s\t%s\n", rec.Package(), rec.URL)
	}
	return 0, nil
}
