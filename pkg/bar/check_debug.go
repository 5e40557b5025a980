//go:build specdebug

/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package bar

// Checked reports whether offsets are validated
const Checked = true

func checkOffset(r *Region, off uint32, count int) {
	if count <= 0 {
		return
	}
	if uint64(off)+uint64(count) > uint64(r.words) {
		panic(ErrOutOfRange{Bar: r.index, Offset: off, Count: count, Words: r.words})
	}
}
