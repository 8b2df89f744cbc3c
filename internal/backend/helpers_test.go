// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend_test

import (
	"context"

	"github.com/taibuivan/finscope/internal/platform/ctxutil"
)

func contextWithRequestID(id string) context.Context {
	return ctxutil.WithRequestID(context.Background(), id)
}
