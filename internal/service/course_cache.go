package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/observability"
)

// CourseCache stores serialized course details in Redis. A nil client turns
// every call into a miss or a no-op. Each cached entry is also indexed under
// its subject and teacher so writes to those records can drop it.
type CourseCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCourseCache constructs the cache.
func NewCourseCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CourseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CourseCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "course_cache").Logger(),
	}
}

func (c *CourseCache) key(id uint) string {
	return fmt.Sprintf("course:detail:%d", id)
}

func (c *CourseCache) refKey(kind string, id uint) string {
	return fmt.Sprintf("course:ref:%s:%d", kind, id)
}

// Get returns the cached course, if any.
func (c *CourseCache) Get(ctx context.Context, id uint) (dto.CourseResponse, bool) {
	if c == nil || c.client == nil {
		return dto.CourseResponse{}, false
	}

	payload, err := c.client.Get(ctx, c.key(id)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Uint("course_id", id).Msg("failed to read course cache")
		}
		observability.CourseCache().WithLabelValues("miss").Inc()
		return dto.CourseResponse{}, false
	}

	var course dto.CourseResponse
	if err := json.Unmarshal([]byte(payload), &course); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", id).Msg("failed to decode course cache")
		observability.CourseCache().WithLabelValues("miss").Inc()
		return dto.CourseResponse{}, false
	}

	observability.CourseCache().WithLabelValues("hit").Inc()
	return course, true
}

// Set stores a course detail.
func (c *CourseCache) Set(ctx context.Context, course dto.CourseResponse) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(course)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode course cache")
		return
	}
	subjectRef := c.refKey("subject", course.Subject.ID)
	teacherRef := c.refKey("teacher", course.Teacher.ID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.key(course.ID), payload, c.ttl)
		pipe.SAdd(ctx, subjectRef, course.ID)
		pipe.Expire(ctx, subjectRef, c.ttl)
		pipe.SAdd(ctx, teacherRef, course.ID)
		pipe.Expire(ctx, teacherRef, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Uint("course_id", course.ID).Msg("failed to store course cache")
	}
}

// Invalidate drops the cached course.
func (c *CourseCache) Invalidate(ctx context.Context, id uint) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", id).Msg("failed to invalidate course cache")
	}
}

// InvalidateSubject drops every cached course that embeds the subject.
func (c *CourseCache) InvalidateSubject(ctx context.Context, subjectID uint) {
	c.invalidateRefs(ctx, "subject", subjectID)
}

// InvalidateTeacher drops every cached course taught by the user.
func (c *CourseCache) InvalidateTeacher(ctx context.Context, userID uint) {
	c.invalidateRefs(ctx, "teacher", userID)
}

func (c *CourseCache) invalidateRefs(ctx context.Context, kind string, id uint) {
	if c == nil || c.client == nil {
		return
	}

	ref := c.refKey(kind, id)
	members, err := c.client.SMembers(ctx, ref).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("kind", kind).Uint("id", id).Msg("failed to read course cache index")
		return
	}

	keys := make([]string, 0, len(members)+1)
	keys = append(keys, ref)
	for _, member := range members {
		keys = append(keys, "course:detail:"+member)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Str("kind", kind).Uint("id", id).Msg("failed to invalidate course cache")
	}
}
