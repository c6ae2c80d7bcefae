package falcon

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

// RepositoryPath returns the registry path of a vendor component image,
// without the host. Only vendor components have images.
func RepositoryPath(c model.Component, mode model.SensorMode, cloud model.FalconCloud) (string, error) {
	seg := cloud.RegistrySegment()
	switch c {
	case model.ComponentSensor:
		if mode == model.SensorModeSidecar {
			return "falcon-container/" + seg + "/release/falcon-sensor", nil
		}
		return "falcon-sensor/" + seg + "/release/falcon-sensor", nil
	case model.ComponentKAC:
		return "falcon-kac/" + seg + "/release/falcon-kac", nil
	case model.ComponentIAR:
		return "falcon-imageanalyzer/" + seg + "/release/falcon-imageanalyzer", nil
	case model.ComponentKPA:
		return "kubernetes_protection/kpagent", nil
	}
	return "", fmt.Errorf("component %s has no vendor image", c)
}

// RegistryUsername returns the registry login of a component: kp-<cid> for
// KPA and fc-<cid> for everything else.
func RegistryUsername(c model.Component, cid string) string {
	if c == model.ComponentKPA {
		return "kp-" + cid
	}
	return "fc-" + cid
}

// ImageResolver picks component images in the vendor registry.
type ImageResolver struct {
	Cloud model.FalconCloud
	// Host overrides Cloud.RegistryHost().
	Host string
	// Insecure allows plain HTTP to Host.
	Insecure bool
}

func (r *ImageResolver) host() string {
	if r.Host != "" {
		return r.Host
	}
	return r.Cloud.RegistryHost()
}

// ImageRequest selects one component image.
type ImageRequest struct {
	Component model.Component
	Mode      model.SensorMode
	// Version is an optional tag prefix such as 7.10 or 7.10.0-16303.
	Version  string
	Username string
	Password string
}

// Resolve lists the repository tags and returns the newest one matching the
// requested version. The returned ImageRef carries a pull token for the
// vendor registry.
func (r *ImageResolver) Resolve(ctx context.Context, req ImageRequest) (model.ImageRef, error) {
	path, err := RepositoryPath(req.Component, req.Mode, r.Cloud)
	if err != nil {
		return model.ImageRef{}, err
	}
	var nameOpts []name.Option
	if r.Insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}
	repo, err := name.NewRepository(r.host()+"/"+path, nameOpts...)
	if err != nil {
		return model.ImageRef{}, fmt.Errorf("parse repository: %w", err)
	}
	auth := &authn.Basic{Username: req.Username, Password: req.Password}
	tags, err := remote.List(repo, remote.WithContext(ctx), remote.WithAuth(auth))
	if err != nil {
		return model.ImageRef{}, fmt.Errorf("list tags of %s: %w", repo.String(), err)
	}
	tag, err := LatestTag(tags, req.Version)
	if err != nil {
		return model.ImageRef{}, fmt.Errorf("%s: %w", repo.String(), err)
	}
	logging.FromContext(ctx).Info(ctx, "resolved image", "component", req.Component, "repository", repo.String(), "tag", tag)

	token, err := PullToken(repo.RegistryStr(), req.Username, req.Password)
	if err != nil {
		return model.ImageRef{}, err
	}
	return model.ImageRef{Repository: repo.String(), Tag: tag, PullToken: token}, nil
}

// tagVersion matches the leading x.y.z and an optional numeric build, as in
// 7.10.0-16303-1.falcon-linux.Release.US-1 or 0.2117.0.
var tagVersion = regexp.MustCompile(`^(\d+\.\d+\.\d+)(?:-(\d+))?`)

type versionedTag struct {
	tag   string
	ver   *semver.Version
	build int
}

// hasVersionPrefix reports whether tag starts with prefix ending on a version
// component boundary, so 7.1 matches 7.1.0-12000 but not 7.10.0-16303.
func hasVersionPrefix(tag, prefix string) bool {
	if !strings.HasPrefix(tag, prefix) {
		return false
	}
	if len(tag) == len(prefix) || strings.ContainsAny(prefix[len(prefix)-1:], ".-+") {
		return true
	}
	return strings.ContainsAny(tag[len(prefix):len(prefix)+1], ".-+")
}

// LatestTag returns the newest tag whose version starts with prefix. Tags
// without a leading x.y.z version (latest, signatures) are ignored.
func LatestTag(tags []string, prefix string) (string, error) {
	var cands []versionedTag
	for _, t := range tags {
		if prefix != "" && !hasVersionPrefix(t, prefix) {
			continue
		}
		m := tagVersion.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		v, err := semver.NewVersion(m[1])
		if err != nil {
			continue
		}
		build := 0
		if m[2] != "" {
			build, _ = strconv.Atoi(m[2])
		}
		cands = append(cands, versionedTag{tag: t, ver: v, build: build})
	}
	if len(cands) == 0 {
		if prefix != "" {
			return "", fmt.Errorf("no tag matches version %q", prefix)
		}
		return "", fmt.Errorf("no versioned tags found")
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if c := cands[i].ver.Compare(cands[j].ver); c != 0 {
			return c < 0
		}
		if cands[i].build != cands[j].build {
			return cands[i].build < cands[j].build
		}
		return cands[i].tag < cands[j].tag
	})
	return cands[len(cands)-1].tag, nil
}
