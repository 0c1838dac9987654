package translate

import (
	"context"
	"fmt"

	"islandbridge/internal/model"
	"islandbridge/internal/widget"
	logx "islandbridge/pkg/logx"
)

// widgetWidthDp is the fixed island width hosted widgets render into.
const widgetWidthDp = 350

// WidgetTranslator builds islands for pinned home-screen widgets. The
// interactive mode embeds the live view, wrapped in a fixed-height
// container for every preset except ORIGINAL; snapshot mode rasterizes
// the widget instead.
type WidgetTranslator struct {
	base
	provider widget.Provider
}

func NewWidgetTranslator(factory Factory, provider widget.Provider, log logx.Logger) *WidgetTranslator {
	return &WidgetTranslator{base: newBase(factory, log), provider: provider}
}

func widgetPicKey(widgetID int) string {
	return fmt.Sprintf("widget_%d", widgetID)
}

// Translate builds the payload for one widget. It returns ErrNoView when
// the host has pushed neither a view nor a raster for the widget yet.
func (t *WidgetTranslator) Translate(ctx context.Context, widgetID int, cfg model.WidgetConfig) (model.DisplayPayload, error) {
	title := fmt.Sprintf("widget %d", widgetID)
	b := t.factory("bridge_widget", title)

	b.SetConfig(model.EffectiveDisplayConfig{
		Float:   false,
		Shade:   cfg.Shade,
		Timeout: cfg.Timeout,
	})
	b.SetHideDeco(true)
	b.SetDismissible(false)

	heightDp := cfg.Size.HeightDp()

	switch cfg.RenderMode {
	case model.WidgetSnapshot:
		bm, err := t.provider.Snapshot(ctx, widgetID, widgetWidthDp, heightDp)
		if err != nil {
			return model.DisplayPayload{}, err
		}
		key := widgetPicKey(widgetID)
		b.AddPicture(model.Picture{Key: key, Bitmap: bm})
		b.SetSnapshot(key, heightDp)
		b.SetCompact(key)
	default:
		v, ok := t.provider.LatestView(widgetID)
		if !ok {
			return model.DisplayPayload{}, widget.ErrNoView
		}
		if cfg.Size == model.WidgetOriginal {
			// Pass the live view through untouched.
			b.SetView(v, 0)
		} else {
			b.SetView(v, heightDp)
		}
		b.AddPicture(transparentPicture(hiddenPixelKey))
		b.SetCompact(hiddenPixelKey)
	}

	if t.log.Enabled(logx.LevelDebug) {
		t.log.Debug("widget translated",
			logx.Int("widget_id", widgetID),
			logx.String("mode", string(cfg.RenderMode)),
			logx.String("size", string(cfg.Size)),
		)
	}
	return b.Build(), nil
}
