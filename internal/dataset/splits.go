package dataset

import (
	"fmt"
	"strings"
)

// Splits are the named scene lists of the mini dataset.
var Splits = map[string][]string{
	"mini_train": {
		"scene-0061", "scene-0553", "scene-0655", "scene-0757",
		"scene-0796", "scene-1077", "scene-1094", "scene-1100",
	},
	"mini_val": {"scene-0103", "scene-0916"},
}

// ResolveScenes expands a scene selector into scene names. It accepts a
// split name, "all", a single scene name or a comma-separated list.
func ResolveScenes(store Store, selector string) ([]string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("empty scene selector")
	}
	if names, ok := Splits[selector]; ok {
		return append([]string(nil), names...), nil
	}
	if selector == "all" {
		scenes, err := store.Scenes()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(scenes))
		for _, s := range scenes {
			names = append(names, s.Name)
		}
		return names, nil
	}
	var names []string
	for _, part := range strings.Split(selector, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names, nil
}
