package providerdrv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kompox/kprotect/domain/model"
)

// Setting returns a trimmed value from a settings map.
func Setting(settings map[string]string, key string) string {
	if settings == nil {
		return ""
	}
	return strings.TrimSpace(settings[key])
}

// SplitList splits a comma separated setting, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// NodeCount returns the node_count setting of a cluster, or def when unset.
func NodeCount(cluster *model.Cluster, def int) (int, error) {
	v := cluster.Setting(model.SettingNodeCount)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: node count must be a positive integer, got %q", model.ErrInvalidOptions, v)
	}
	return n, nil
}

// RequireSettings returns an error naming every missing key.
func RequireSettings(cluster *model.Cluster, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if cluster.Setting(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing cluster settings: %s", model.ErrInvalidOptions, strings.Join(missing, ", "))
	}
	return nil
}
