// Package catalog binds template assets to named capabilities. Every
// entry is a thin closure over the perception layer; workflow documents
// reference these names and nothing else.
package catalog

import (
	"context"
	"fmt"

	"github.com/milthm/autogarden/extension"
	"github.com/milthm/autogarden/model/types"
	"github.com/viant/afs/url"
)

// Screen is the slice of the perception layer the catalog consumes.
type Screen interface {
	Exists(ctx context.Context, templateURL string) (bool, error)
	ExistsAny(ctx context.Context, templateURLs ...string) (bool, error)
	LocateAndClick(ctx context.Context, templateURL string) (bool, error)
	LocateAndClickAny(ctx context.Context, templateURLs ...string) (bool, error)
}

// Catalog exposes the garden automation capabilities over a screen and
// an assets location.
type Catalog struct {
	screen    Screen
	assetsURL string
}

// New creates a catalog reading templates under assetsURL.
func New(screen Screen, assetsURL string) *Catalog {
	return &Catalog{screen: screen, assetsURL: assetsURL}
}

func (c *Catalog) asset(parts ...string) string {
	ret := c.assetsURL
	for _, part := range parts {
		ret = url.Join(ret, part)
	}
	return ret
}

func (c *Catalog) clicker(parts ...string) types.Capability {
	templateURL := c.asset(parts...)
	return types.NewActor(func(ctx context.Context) (bool, error) {
		return c.screen.LocateAndClick(ctx, templateURL)
	})
}

func (c *Catalog) detector(parts ...string) types.Capability {
	templateURL := c.asset(parts...)
	return types.NewDetector(func(ctx context.Context) (bool, error) {
		return c.screen.Exists(ctx, templateURL)
	})
}

// plantCrop clicks a crop template selected by its runtime name.
func (c *Catalog) plantCrop() types.Capability {
	return types.NewParamActor(func(ctx context.Context, crop string) (bool, error) {
		if crop == "" {
			return false, fmt.Errorf("crop name is required")
		}
		return c.screen.LocateAndClick(ctx, c.asset("plant", crop+".png"))
	})
}

// Capabilities returns every catalog entry keyed by capability name. The
// luxiaohuiting button has two visual states, so both variants back one
// capability.
func (c *Catalog) Capabilities() map[string]types.Capability {
	luxiaohuiting := []string{
		c.asset("button", "luxiaohuiting.png"),
		c.asset("button", "luxiaohuiting_gantanhao.png"),
	}
	plantCrop := c.plantCrop()
	return map[string]types.Capability{
		"button_luxiaohuiting": types.NewActor(func(ctx context.Context) (bool, error) {
			return c.screen.LocateAndClickAny(ctx, luxiaohuiting...)
		}),
		"button_shouhuo":  c.clicker("button", "shouhuo.png"),
		"button_zhongzhi": c.clicker("button", "zhongzhi.png"),
		"button_return":   c.clicker("button", "return.png"),

		"icon_shouhuo":         c.clicker("icon", "shouhuo.png"),
		"icon_garden_zhongzhi": c.clicker("icon", "garden_zhongzhi.png"),
		"icon_garden_return":   c.clicker("icon", "garden_return.png"),

		"item_konghuapen":         c.clicker("item", "konghuapen.png"),
		"item_is_in_select_music": c.detector("item", "is_in_select_music.png"),

		"plant_crop": plantCrop,
		// Legacy alias kept so existing documents keep resolving.
		"item_crop": plantCrop,

		"check_luxiaohuiting": types.NewDetector(func(ctx context.Context) (bool, error) {
			return c.screen.ExistsAny(ctx, luxiaohuiting...)
		}),
		"check_konghuapen":      c.detector("item", "konghuapen.png"),
		"check_icon_shouhuo":    c.detector("icon", "shouhuo.png"),
		"check_is_in_garden":    c.detector("item", "is_in_garden.png"),
		"check_garden_zhongzhi": c.detector("icon", "garden_zhongzhi.png"),
	}
}

// Register installs every catalog capability into the registry.
func (c *Catalog) Register(registry *extension.Capabilities) {
	registry.RegisterAll(c.Capabilities())
}
