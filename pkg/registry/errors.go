// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry

import "errors"

// ErrNotFound is returned by the query methods when no stored descriptor
// answers the lookup. Callers should test for it with errors.Is.
var ErrNotFound = errors.New("not found")
