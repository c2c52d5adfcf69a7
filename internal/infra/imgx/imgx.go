package imgx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // 注册 PNG 解码器（TMDB logo 常是 png）

	"golang.org/x/image/draw"
)

// ThumbnailJPEG 把海报等比缩放到宽度不超过 maxWidth，并编码为 JPEG。
//
// 约束：
// - 输入允许是 JPEG/PNG
// - 输出固定为 JPEG
// - 原图宽度不超过 maxWidth 时不放大，只重新编码
func ThumbnailJPEG(src []byte, maxWidth int) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("图片为空")
	}
	if maxWidth <= 0 {
		return nil, fmt.Errorf("maxWidth 必须为正数，实际 %d", maxWidth)
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	w, h := b.Dx(), b.Dy()
	if w > maxWidth {
		h = h * maxWidth / w
		if h < 1 {
			h = 1
		}
		w = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
