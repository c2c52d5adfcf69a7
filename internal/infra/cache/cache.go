package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/fsx"
)

// Store 提供 <root>/providers/ 下的 provider 可用性文件缓存。
//
// 约束：
// - 过期判断基于文件 mtime（TTL <= 0 表示永不过期）
// - 只缓存成功结果；失败只进入内存层
type Store struct {
	Root string
	TTL  time.Duration

	now func() time.Time
}

func NewStore(root string, ttl time.Duration) Store {
	return Store{
		Root: filepath.Clean(strings.TrimSpace(root)),
		TTL:  ttl,
		now:  time.Now,
	}
}

// AvailabilityPath 返回某个条目缓存文件的绝对路径。
func (s Store) AvailabilityPath(key domain.TitleKey) (string, error) {
	mt, err := cleanMediaType(key.MediaType)
	if err != nil {
		return "", err
	}
	if key.ID <= 0 {
		return "", fmt.Errorf("非法 id：%d", key.ID)
	}
	return filepath.Join(s.Root, "providers", mt, strconv.Itoa(key.ID)+".json"), nil
}

// ReadAvailability 读取未过期的缓存；文件不存在或已过期时 ok=false。
func (s Store) ReadAvailability(key domain.TitleKey) (domain.Availability, bool, error) {
	path, err := s.AvailabilityPath(key)
	if err != nil {
		return nil, false, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if s.TTL > 0 && s.clock().Sub(fi.ModTime()) > s.TTL {
		return nil, false, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	av := domain.Availability{}
	if err := json.Unmarshal(b, &av); err != nil {
		return nil, false, fmt.Errorf("缓存文件损坏：%s：%w", path, err)
	}
	return av, true, nil
}

func (s Store) WriteAvailability(key domain.TitleKey, av domain.Availability) error {
	path, err := s.AvailabilityPath(key)
	if err != nil {
		return err
	}
	if av == nil {
		av = domain.Availability{}
	}
	b, err := json.Marshal(av)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), b)
}

func (s Store) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

var mediaTypeRE = regexp.MustCompile(`^[a-z]+$`)

func cleanMediaType(mt domain.MediaType) (string, error) {
	v := strings.ToLower(strings.TrimSpace(string(mt)))
	if v == "" {
		return "", fmt.Errorf("media type 不能为空")
	}
	// 最小约束：避免路径穿越。
	if !mediaTypeRE.MatchString(v) {
		return "", fmt.Errorf("非法 media type：%q", mt)
	}
	return v, nil
}
