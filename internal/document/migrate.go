package document

import "fmt"

// migrations[v] turns a version v file into a version v+1 file in place.
var migrations = map[int]func(file map[string]any) error{
	1: renameShapeType,
	2: addLowestZIndex,
}

// migrate brings a decoded file up to Version. Files written before
// versioning carry no fileVersion and are version 1.
func migrate(file map[string]any) error {
	v := 1
	if raw, ok := file["fileVersion"]; ok {
		f, ok := raw.(float64)
		if !ok || f != float64(int(f)) {
			return fmt.Errorf("%w: fileVersion %v", ErrFormat, raw)
		}
		v = int(f)
	}
	if v > Version {
		return fmt.Errorf("%w: version %d is newer than %d", ErrFormat, v, Version)
	}
	for ; v < Version; v++ {
		step, ok := migrations[v]
		if !ok {
			return fmt.Errorf("%w: no migration from version %d", ErrFormat, v)
		}
		if err := step(file); err != nil {
			return fmt.Errorf("%w: migrating from version %d: %w", ErrFormat, v, err)
		}
	}
	file["fileVersion"] = float64(Version)
	return nil
}

func currentScene(file map[string]any) (map[string]any, error) {
	s, ok := file["currentScene"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing currentScene")
	}
	return s, nil
}

// renameShapeType renames each shape's "type" to "shapeType".
func renameShapeType(file map[string]any) error {
	s, err := currentScene(file)
	if err != nil {
		return err
	}
	agg, _ := s["aggregateModels"].(map[string]any)
	shapes, _ := agg["allShapes"].([]any)
	for i, raw := range shapes {
		sh, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("shape %d is not an object", i)
		}
		if t, ok := sh["type"]; ok {
			sh["shapeType"] = t
			delete(sh, "type")
		}
	}
	return nil
}

// addLowestZIndex adds ZIndexOfLowestShape, which version 2 did not track.
func addLowestZIndex(file map[string]any) error {
	s, err := currentScene(file)
	if err != nil {
		return err
	}
	if _, ok := s["ZIndexOfLowestShape"]; !ok {
		s["ZIndexOfLowestShape"] = 0.0
	}
	return nil
}
