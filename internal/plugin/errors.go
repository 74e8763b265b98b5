package plugin

import "fmt"

func errMissingField(field string) error {
	return fmt.Errorf("plugin: missing required field %q", field)
}
