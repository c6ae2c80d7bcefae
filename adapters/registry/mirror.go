package registry

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"

	"github.com/kompox/kprotect/adapters/falcon"
	"github.com/kompox/kprotect/domain/model"
)

// Mirror implements model.MirrorPort with Credentials and a Copier.
type Mirror struct {
	Credentials *Credentials
	Copier      *Copier
}

var _ model.MirrorPort = (*Mirror)(nil)

// Mirror copies src to <target>/<basename>:<tag>. ECR repositories are
// created first. A pull token is attached when the cluster needs one.
func (m *Mirror) Mirror(ctx context.Context, src *model.VendorImage, target string, clusterType model.ClusterType) (model.ImageRef, error) {
	if src == nil || src.Repository == "" || src.Tag == "" {
		return model.ImageRef{}, fmt.Errorf("mirror: source image is not resolved")
	}
	creds := m.Credentials
	if creds == nil {
		creds = &Credentials{}
	}
	copier := m.Copier
	if copier == nil {
		copier = &Copier{}
	}

	target = strings.TrimRight(strings.TrimPrefix(strings.TrimPrefix(target, "https://"), "http://"), "/")
	host := Host(target)
	regType := DetectType(target)
	var opts []name.Option
	if copier.Insecure {
		opts = append(opts, name.Insecure)
	}
	reg, err := name.NewRegistry(host, opts...)
	if err != nil {
		return model.ImageRef{}, fmt.Errorf("parse registry %q: %w", host, err)
	}
	dstAuth, err := creds.Authenticator(ctx, reg, regType)
	if err != nil {
		return model.ImageRef{}, err
	}

	dstRepo := target + "/" + path.Base(src.Repository)
	if regType == model.RegistryECR && creds.ECR != nil {
		if err := EnsureECRRepository(ctx, creds.ECR, strings.TrimPrefix(dstRepo, host+"/")); err != nil {
			return model.ImageRef{}, err
		}
	}
	srcAuth := &authn.Basic{Username: src.Username, Password: src.Password}
	if _, err := copier.Copy(ctx, src.String(), srcAuth, dstRepo+":"+src.Tag, dstAuth); err != nil {
		return model.ImageRef{}, err
	}

	out := model.ImageRef{Repository: dstRepo, Tag: src.Tag}
	if !NeedsPullSecret(regType, clusterType) {
		return out, nil
	}
	ac, err := dstAuth.Authorization()
	if err != nil {
		return model.ImageRef{}, fmt.Errorf("registry login for pull secret: %w", err)
	}
	if ac.Username == "" || ac.Password == "" {
		return model.ImageRef{}, fmt.Errorf("%s needs a pull secret but no registry login is available: %w", host, model.ErrNotLoggedIn)
	}
	if out.PullToken, err = falcon.PullToken(host, ac.Username, ac.Password); err != nil {
		return model.ImageRef{}, err
	}
	return out, nil
}
