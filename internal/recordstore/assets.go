package recordstore

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
)

// AssetResolver derives a fetchable URL for a stored binary asset.
type AssetResolver interface {
	PublicURL(bucket, path string) string
}

func isAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// BucketResolver serves assets from <BaseURL>/<bucket>/<path>.
type BucketResolver struct {
	BaseURL string
}

func (r BucketResolver) PublicURL(bucket, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if isAbsoluteURL(path) {
		return path
	}
	u, err := url.JoinPath(r.BaseURL, bucket, strings.TrimLeft(path, "/"))
	if err != nil {
		return ""
	}
	return u
}

// CloudinaryResolver maps bucket/path to a Cloudinary delivery URL, using
// the bucket as folder of the public id.
type CloudinaryResolver struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryResolver(cloudinaryURL string) (*CloudinaryResolver, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryResolver{cld: cld}, nil
}

func (r *CloudinaryResolver) PublicURL(bucket, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if isAbsoluteURL(path) {
		return path
	}
	publicID := strings.TrimLeft(path, "/")
	if bucket != "" {
		publicID = bucket + "/" + publicID
	}
	img, err := r.cld.Image(publicID)
	if err != nil {
		return ""
	}
	u, err := img.String()
	if err != nil {
		return ""
	}
	return u
}
