// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package unit

// TagsErr describes the failing rule of a failed AssertTags.
const TagsErr = tagsErr

// TagsOk is the message of a passed AssertTags.
const TagsOk = tagsOk
