/*
Package list implements beaver's ordered-sequence manager: a named list of
values ordered by a dense floating-point order_key rather than an integer
index, so inserting anywhere in the sequence never requires renumbering
existing rows.

	push(v):     order_key = max(order_key) + 1   (or 1 if empty)
	prepend(v):  order_key = min(order_key) - 1   (or -1 if empty)
	insert(i,v): order_key = midpoint(key[i-1], key[i])

Reads walk the table ordered by (order_key ASC, rowid ASC); the rowid
tiebreak only matters for rows that share an order_key. All
index mutations run under the list's internal fair lock because picking
a fresh key requires reading the neighbors before writing.
*/
package list
