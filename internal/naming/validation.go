package naming

import (
	"fmt"
	"regexp"
	"strings"

	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
)

var eksNamePattern = regexp.MustCompile(`^[0-9A-Za-z][A-Za-z0-9\-_]*$`)

// ValidateClusterName checks name against the naming rules of the provider.
func ValidateClusterName(provider, name string) error {
	if name == "" {
		return fmt.Errorf("cluster name must not be empty")
	}
	switch provider {
	case "aws":
		if len(name) > 100 || !eksNamePattern.MatchString(name) {
			return fmt.Errorf("invalid EKS cluster name %q: up to 100 letters, digits, hyphens and underscores", name)
		}
	case "azure":
		return validateDNS1123Label(name, 63, "AKS cluster")
	case "gcp":
		if err := validateDNS1123Label(name, 40, "GKE cluster"); err != nil {
			return err
		}
		if name[0] < 'a' || name[0] > 'z' {
			return fmt.Errorf("invalid GKE cluster name %q: must start with a letter", name)
		}
	default:
		return validateDNS1123Label(name, 63, "cluster")
	}
	return nil
}

func validateDNS1123Label(name string, maximum int, labelKind string) error {
	if len(name) > maximum {
		return fmt.Errorf("%s name exceeds %d characters", labelKind, maximum)
	}
	if errs := utilvalidation.IsDNS1123Label(name); len(errs) > 0 {
		return fmt.Errorf("invalid %s name: %s", labelKind, strings.Join(errs, ", "))
	}
	return nil
}
