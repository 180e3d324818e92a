package tweaks

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/regstore"
)

// AccountPictureSizes are the square sizes the account picture is rendered at.
var AccountPictureSizes = []int{32, 40, 48, 64, 96, 192, 208, 240, 424, 448, 1080}

const accountPictureKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\AccountPicture\Users`

func (a *Applier) userSID() (string, error) {
	if a.UserSID != nil {
		return a.UserSID()
	}
	return CurrentUserSID()
}

func (a *Applier) applyAccountPicture(ctx context.Context) error {
	picture := a.settings().AccountPicture
	if picture == "" {
		return ErrNotConfigured
	}
	src, err := loadImage(a.resolve(picture))
	if err != nil {
		return err
	}
	sid, err := a.userSID()
	if err != nil {
		return fmt.Errorf("looking up user SID: %w", err)
	}

	dir := filepath.Join(a.accountPicsDir(), sid)
	key := accountPictureKey + `\` + sid
	for _, size := range AccountPictureSizes {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("Image%d.jpg", size))
		if err := a.writePicture(SquareResize(src, size), path); err != nil {
			return fmt.Errorf("writing %dpx picture: %w", size, err)
		}
		if err := a.Store.SetString(regstore.LocalMachine, key, fmt.Sprintf("Image%d", size), path); err != nil {
			return err
		}
	}
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	logging.Debug("Loaded image", "path", path, "format", format, "bounds", img.Bounds().String())
	return img, nil
}

// SquareResize crops the centre square of src and scales it to size x size.
func SquareResize(src image.Image, size int) *image.RGBA {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Src, nil)
	return dst
}

func (a *Applier) writePicture(img image.Image, path string) error {
	if a.CheckOnly {
		logging.Info("CheckOnly: would write account picture", "path", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
