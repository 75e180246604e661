package routing

import "errors"

// ErrProfileMismatch 画像向量数量与书架数量不一致
var ErrProfileMismatch = errors.New("profile embedding count mismatch")
