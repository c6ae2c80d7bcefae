package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/kompox/kprotect/internal/logging"
)

// Copier copies images between registries.
type Copier struct {
	// Insecure allows plain HTTP on both ends.
	Insecure bool
}

// CopyResult describes a finished copy.
type CopyResult struct {
	Digest  string
	Skipped bool // destination already had the same digest
}

func (c *Copier) parse(ref string) (name.Reference, error) {
	var opts []name.Option
	if c.Insecure {
		opts = append(opts, name.Insecure)
	}
	r, err := name.ParseReference(ref, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return r, nil
}

// Copy copies src to dst. Multi-platform indexes are copied whole. Nothing is
// written when dst already resolves to the digest of src.
func (c *Copier) Copy(ctx context.Context, src string, srcAuth authn.Authenticator, dst string, dstAuth authn.Authenticator) (*CopyResult, error) {
	logger := logging.FromContext(ctx)
	srcRef, err := c.parse(src)
	if err != nil {
		return nil, err
	}
	dstRef, err := c.parse(dst)
	if err != nil {
		return nil, err
	}
	if srcAuth == nil {
		srcAuth = authn.Anonymous
	}
	if dstAuth == nil {
		dstAuth = authn.Anonymous
	}
	srcOpts := []remote.Option{remote.WithContext(ctx), remote.WithAuth(srcAuth)}
	dstOpts := []remote.Option{remote.WithContext(ctx), remote.WithAuth(dstAuth)}

	desc, err := remote.Get(srcRef, srcOpts...)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", src, err)
	}
	digest := desc.Digest.String()

	if existing, err := remote.Head(dstRef, dstOpts...); err == nil && existing.Digest == desc.Digest {
		logger.Info(ctx, "image already present", "image", dst, "digest", digest)
		return &CopyResult{Digest: digest, Skipped: true}, nil
	}

	if desc.MediaType.IsIndex() {
		idx, err := desc.ImageIndex()
		if err != nil {
			return nil, fmt.Errorf("read index %s: %w", src, err)
		}
		if err := remote.WriteIndex(dstRef, idx, dstOpts...); err != nil {
			return nil, fmt.Errorf("write index %s: %w", dst, err)
		}
	} else {
		img, err := desc.Image()
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", src, err)
		}
		if err := remote.Write(dstRef, img, dstOpts...); err != nil {
			return nil, fmt.Errorf("write image %s: %w", dst, err)
		}
	}
	logger.Info(ctx, "image copied", "from", src, "to", dst, "digest", digest)
	return &CopyResult{Digest: digest}, nil
}

// EnsureECRRepository creates an ECR repository unless it exists.
func EnsureECRRepository(ctx context.Context, api ECRAPI, repository string) error {
	_, err := api.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{RepositoryNames: []string{repository}})
	if err == nil {
		return nil
	}
	var notFound *ecrtypes.RepositoryNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe ecr repository %s: %w", repository, err)
	}
	_, err = api.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName:     aws.String(repository),
		ImageTagMutability: ecrtypes.ImageTagMutabilityMutable,
	})
	var exists *ecrtypes.RepositoryAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("create ecr repository %s: %w", repository, err)
	}
	logging.FromContext(ctx).Info(ctx, "ecr repository created", "repository", repository)
	return nil
}
