package items

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ReadListFile reads an item-list JSON file: a single JSON array of
// item identifier strings.
func ReadListFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read item list %s: %w", path, err)
	}
	list, err := DecodeList(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse item list %s: %w", path, err)
	}
	return list, nil
}

// WriteListFile writes items to path in the item-list JSON format.
func WriteListFile(path string, list []string) error {
	data, err := EncodeList(list)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write item list %s: %w", path, err)
	}
	return nil
}

// DecodeList parses the item-list JSON format (a bare array of strings).
func DecodeList(data []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("item list is not a JSON array of strings: %w", err)
	}
	return list, nil
}

// EncodeList renders items in the item-list JSON format.
func EncodeList(list []string) ([]byte, error) {
	data, err := json.MarshalIndent(list, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode item list: %w", err)
	}
	return data, nil
}

// NewSet builds a membership set from a list of identifiers.
func NewSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, item := range list {
		set[item] = struct{}{}
	}
	return set
}

// Difference returns the identifiers present in a but absent from b,
// sorted for deterministic output.
func Difference(a, b []string) []string {
	bSet := NewSet(b)
	var diff []string
	seen := make(map[string]struct{}, len(a))
	for _, item := range a {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		if _, ok := bSet[item]; !ok {
			diff = append(diff, item)
		}
	}
	sort.Strings(diff)
	return diff
}

// Subset reports whether every identifier in a is also present in b.
func Subset(a, b []string) bool {
	bSet := NewSet(b)
	for _, item := range a {
		if _, ok := bSet[item]; !ok {
			return false
		}
	}
	return true
}
