package extinfo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"dexmetrics/internal/domain"
	"dexmetrics/internal/infra"
)

const (
	// required image geometry; anything else is rejected, never resized
	imageSide = 48

	maxDescriptionLen = 4096
)

// assetMetadata is the JSON document an issuer publishes for its asset.
type assetMetadata struct {
	Asset       string `json:"asset"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Website     string `json:"website"`
}

// InfoStore is the persistence side of the extended info pipeline.
type InfoStore interface {
	// PendingExtendedInfo lists enabled entries due for a fetch.
	PendingExtendedInfo(ctx context.Context) ([]domain.AssetExtendedInfo, error)
	SaveExtendedInfo(ctx context.Context, info domain.AssetExtendedInfo) error
}

// Fetcher pulls issuer-published asset metadata, validates it strictly and
// stores the sanitized result with a normalized logo image. One bad asset
// never aborts a pass.
type Fetcher struct {
	store    InfoStore
	client   *resty.Client
	imageDir string
	log      *slog.Logger
}

func New(store InfoStore, imageDir string, log *slog.Logger) (*Fetcher, error) {
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", infra.DefaultUserAgent)

	return &Fetcher{
		store:    store,
		client:   client,
		imageDir: imageDir,
		log:      log,
	}, nil
}

// RunOnce fetches every pending entry.
func (f *Fetcher) RunOnce(ctx context.Context) error {
	pending, err := f.store.PendingExtendedInfo(ctx)
	if err != nil {
		return err
	}
	fetched := 0
	for _, entry := range pending {
		if err := f.fetchOne(ctx, entry); err != nil {
			f.log.Warn("extended info fetch failed",
				slog.String("asset", entry.Asset),
				slog.Any("error", err))
			continue
		}
		fetched++
	}
	f.log.Info("extended asset info pass complete",
		slog.Int("pending", len(pending)),
		slog.Int("fetched", fetched))
	return nil
}

func (f *Fetcher) fetchOne(ctx context.Context, entry domain.AssetExtendedInfo) error {
	var meta assetMetadata
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&meta).
		ForceContentType("application/json").
		Get(entry.URL)
	if err != nil {
		return domain.NewNetworkError("fetch metadata", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("bad status: %s", resp.Status())
	}

	// the document must name the asset it claims to describe
	if meta.Asset != entry.Asset {
		return fmt.Errorf("metadata names %q, expected %q", meta.Asset, entry.Asset)
	}
	description := sanitizeText(meta.Description)
	website := meta.Website
	if website != "" && !validHTTPURL(website) {
		return fmt.Errorf("invalid website URL: %s", website)
	}

	imagePath := ""
	if meta.Image != "" {
		if !validHTTPURL(meta.Image) {
			return fmt.Errorf("invalid image URL: %s", meta.Image)
		}
		imagePath, err = f.fetchImage(ctx, entry.Asset, meta.Image)
		if err != nil {
			return err
		}
	}

	entry.Description = description
	entry.Website = website
	entry.ImagePath = imagePath
	entry.FetchedAt = time.Now().UTC()
	return f.store.SaveExtendedInfo(ctx, entry)
}

// fetchImage downloads the asset logo, requires an exactly 48x48 RGB/RGBA
// PNG and re-encodes it under the image dir. Returns the saved path.
func (f *Fetcher) fetchImage(ctx context.Context, asset, imageURL string) (string, error) {
	safe := sanitizeAssetName(asset)
	if safe == "" {
		return "", fmt.Errorf("unusable asset name: %s", asset)
	}

	resp, err := f.client.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return "", domain.NewNetworkError("fetch image", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("bad image status: %s", resp.Status())
	}

	img, format, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	if format != "png" {
		return "", fmt.Errorf("logo must be a PNG, got %s", format)
	}
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
	default:
		return "", fmt.Errorf("logo must be RGB or RGBA")
	}
	bounds := img.Bounds()
	if bounds.Dx() != imageSide || bounds.Dy() != imageSide {
		return "", fmt.Errorf("image is %dx%d, must be %dx%d",
			bounds.Dx(), bounds.Dy(), imageSide, imageSide)
	}

	path := filepath.Join(f.imageDir, strings.ToLower(safe)+".png")
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return path, nil
}

// sanitizeText reduces issuer-controlled text to single-line plain text:
// markup is stripped down to its text content, whitespace collapsed, and the
// result bounded in length without splitting a rune.
func sanitizeText(s string) string {
	s = stripMarkup(s)
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxDescriptionLen {
		cut := maxDescriptionLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// stripMarkup keeps only the text content of the input, dropping tags along
// with the bodies of script and style elements.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	var b strings.Builder
	skip := 0
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	return string(name) == "script" || string(name) == "style"
}

func validHTTPURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func sanitizeAssetName(asset string) string {
	res := make([]rune, 0, len(asset))
	for _, r := range asset {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' {
			res = append(res, r)
		}
	}
	return strings.Trim(string(res), ".")
}
