/*
Package world is the data access layer for the world and fortune tables.

Gateway submits statements to a db.Executor and returns an async.Future or async.Stream
for each call. It holds nothing but the executor, so one Gateway is shared by every
request.

FindAndUpdateWorld reads then writes in two round trips with no transaction around them.
A concurrent writer to the same row between the two is not detected; the last write wins.
*/
package world
