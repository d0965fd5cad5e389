// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import "math"

// NormalizeInPlace scales a vector to unit L2 length in place.
// If the squared norm is not finite, or is not above machine epsilon, the
// vector is zeroed out instead so NaN/Inf never reach a persisted index.
func NormalizeInPlace(v []float32) {
	var normSq float64
	for _, x := range v {
		normSq += float64(x) * float64(x)
	}

	if math.IsNaN(normSq) || math.IsInf(normSq, 0) || normSq <= 1.1920929e-07 {
		for i := range v {
			v[i] = 0
		}
		return
	}

	inv := float32(1.0 / math.Sqrt(normSq))
	for i := range v {
		v[i] *= inv
	}
}
