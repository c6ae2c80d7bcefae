package kube

import (
	"fmt"

	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/cli/values"
	"helm.sh/helm/v3/pkg/getter"

	"github.com/kompox/kprotect/domain/model"
)

// MergeUserValues layers user supplied values files and --set expressions
// over base, with the same semantics as the helm CLI. User input wins.
func MergeUserValues(base model.Values, files, sets []string) (model.Values, error) {
	opts := values.Options{ValueFiles: files, Values: sets}
	user, err := opts.MergeValues(getter.All(cli.New()))
	if err != nil {
		return nil, fmt.Errorf("read helm values: %w", err)
	}
	return model.Values(chartutil.CoalesceTables(user, base)), nil
}
